package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"shop-assistant/internal/models"
)

type Input struct {
	History   []models.Message
	Context   string
	Strict    bool
	Origin    string
	Catalogue []models.CatalogueSummaryEntry
}

type Prompt struct {
	Messages []models.Message
	Decoding models.DecodingConfig
}

// Assembler builds the ordered message list for one completion call. It
// holds no per-request state.
type Assembler struct {
	config Config
}

func NewAssembler(config Config) *Assembler {
	return &Assembler{config: config.withDefaults()}
}

func (a *Assembler) Config() Config {
	return a.config
}

// Assemble emits, in order: the policy, the truncated page context, the
// product guidance and the most recent history.
func (a *Assembler) Assemble(in Input) (Prompt, error) {
	origin := strings.TrimSpace(in.Origin)
	if origin == "" {
		origin = noOrigin
	}

	policy := softPolicy(a.config.BrandName, origin)
	if in.Strict {
		policy = strictPolicy(a.config.BrandName, origin)
	}

	history := TrimHistory(in.History, a.config.HistoryLimit)
	messages := make([]models.Message, 0, 3+len(history))
	messages = append(messages, models.Message{Role: models.RoleSystem, Content: policy})

	if ctx := TruncateContext(in.Context, a.config.ContextMaxChars); ctx != "" {
		messages = append(messages, models.Message{Role: models.RoleSystem, Content: contextBlock(ctx)})
	}

	if len(in.Catalogue) > 0 {
		catalogueJSON, err := json.Marshal(in.Catalogue)
		if err != nil {
			return Prompt{}, fmt.Errorf("encode catalogue summary: %w", err)
		}
		messages = append(messages, models.Message{
			Role:    models.RoleSystem,
			Content: productGuidance(string(catalogueJSON), a.config.MaxRecommendations),
		})
	}

	messages = append(messages, history...)

	return Prompt{Messages: messages, Decoding: a.config.Decoding}, nil
}

// TruncateContext trims surrounding whitespace and keeps at most max runes.
func TruncateContext(ctx string, max int) string {
	ctx = strings.TrimSpace(ctx)
	if max <= 0 {
		return ctx
	}
	runes := 0
	for i := range ctx {
		if runes == max {
			return ctx[:i]
		}
		runes++
	}
	return ctx
}

// TrimHistory keeps the last limit messages in their original order.
func TrimHistory(history []models.Message, limit int) []models.Message {
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return append([]models.Message(nil), history...)
}
