// cmd/tools/catalogue-inspect/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"

	"shop-assistant/internal/catalogue"
	"shop-assistant/internal/models"
)

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	summaryCmd := flag.NewFlagSet("summary", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)

	listPath := listCmd.String("path", "data/products.json", "Path to catalogue file")
	listJSON := listCmd.Bool("json", false, "Print client products as JSON")

	summaryPath := summaryCmd.String("path", "data/products.json", "Path to catalogue file")

	validatePath := validateCmd.String("path", "data/products.json", "Path to catalogue file")

	seedPath := seedCmd.String("path", "data/products.json", "Path to catalogue file")
	seedAddr := seedCmd.String("redis", "localhost:6379", "Redis address")
	seedKey := seedCmd.String("key", "catalogue:products", "Redis key to write")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "list":
		listCmd.Parse(os.Args[2:])
		err = runList(os.Stdout, *listPath, *listJSON)

	case "summary":
		summaryCmd.Parse(os.Args[2:])
		err = runSummary(os.Stdout, *summaryPath)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		var report *Report
		report, err = validateFile(*validatePath)
		if err == nil {
			report.Print(os.Stdout)
			if !report.OK() {
				os.Exit(1)
			}
			fmt.Println("Catalogue validation passed.")
		}

	case "seed":
		seedCmd.Parse(os.Args[2:])
		client := redis.NewClient(&redis.Options{Addr: *seedAddr})
		defer client.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var n int
		n, err = seed(ctx, client, *seedPath, *seedKey)
		if err == nil {
			fmt.Printf("Wrote %d products to %s key %s\n", n, *seedAddr, *seedKey)
		}

	case "help":
		fallthrough
	default:
		help()
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func readCatalogue(path string) ([]models.RawProduct, error) {
	data, err := catalogue.FileSource{Path: path}.Read(context.Background())
	if err != nil {
		return nil, err
	}
	return catalogue.Parse(data)
}

func runList(w io.Writer, path string, asJSON bool) error {
	raws, err := readCatalogue(path)
	if err != nil {
		return err
	}
	products := catalogue.NewStore(raws).Products()

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(models.ProductsResponse{Count: len(products), Products: products})
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tURL\tTHUMB")
	for _, p := range products {
		price := "-"
		if p.Price != nil {
			price = fmt.Sprintf("%.2f %s", *p.Price, p.Currency)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Title, price, p.URL, p.Thumb)
	}
	fmt.Fprintf(tw, "\n%d products\n", len(products))
	return tw.Flush()
}

// runSummary prints the catalogue exactly as it is embedded in prompts.
func runSummary(w io.Writer, path string) error {
	raws, err := readCatalogue(path)
	if err != nil {
		return err
	}
	body, err := json.Marshal(catalogue.NewStore(raws).Summaries())
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(body))
	fmt.Fprintf(w, "%d products, %d bytes\n", len(raws), len(body))
	return nil
}

type Report struct {
	Products     int
	GeneratedIDs []string
	DuplicateIDs []string
	NoURL        []string
	NoPrice      []string
	NoTitle      []string
}

// OK is false when an id would be ambiguous to the model.
func (r *Report) OK() bool {
	return len(r.DuplicateIDs) == 0
}

func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Products: %d\n", r.Products)
	section := func(name string, ids []string) {
		if len(ids) == 0 {
			return
		}
		fmt.Fprintf(w, "%s (%d): %s\n", name, len(ids), strings.Join(ids, ", "))
	}
	section("Duplicate ids", r.DuplicateIDs)
	section("Generated ids", r.GeneratedIDs)
	section("Missing url", r.NoURL)
	section("Missing price", r.NoPrice)
	section("Missing title", r.NoTitle)
}

func validateFile(path string) (*Report, error) {
	raws, err := readCatalogue(path)
	if err != nil {
		return nil, err
	}

	report := &Report{Products: len(raws)}
	seen := make(map[string]bool, len(raws))
	for _, raw := range raws {
		p := catalogue.ToClientShape(raw)
		if seen[p.ID] {
			report.DuplicateIDs = append(report.DuplicateIDs, p.ID)
		}
		seen[p.ID] = true

		if !catalogue.HasSourceID(raw) {
			report.GeneratedIDs = append(report.GeneratedIDs, p.ID)
		}
		if p.URL == "#" {
			report.NoURL = append(report.NoURL, p.ID)
		}
		if p.Price == nil {
			report.NoPrice = append(report.NoPrice, p.ID)
		}
		if p.Title == "" {
			report.NoTitle = append(report.NoTitle, p.ID)
		}
	}
	return report, nil
}

// seed copies a validated catalogue file into Redis for the redis source.
func seed(ctx context.Context, client redis.Cmdable, path, key string) (int, error) {
	data, err := catalogue.FileSource{Path: path}.Read(ctx)
	if err != nil {
		return 0, err
	}
	raws, err := catalogue.Parse(data)
	if err != nil {
		return 0, err
	}
	if err := client.Set(ctx, key, data, 0).Err(); err != nil {
		return 0, fmt.Errorf("redis set %q: %w", key, err)
	}
	return len(raws), nil
}

func help() {
	fmt.Println("Usage: catalogue-inspect <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  list      List normalized products (-path, -json)")
	fmt.Println("  summary   Print the prompt-facing catalogue summary (-path)")
	fmt.Println("  validate  Check ids, urls, prices and titles (-path)")
	fmt.Println("  seed      Copy a catalogue file into Redis (-path, -redis, -key)")
	fmt.Println("  help      Show this help message")
}
