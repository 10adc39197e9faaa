// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-assistant/internal/api"
	"shop-assistant/internal/catalogue"
	"shop-assistant/internal/chat"
	"shop-assistant/internal/common/config"
	"shop-assistant/internal/common/database"
	apphttp "shop-assistant/internal/common/http"
	"shop-assistant/internal/common/logger"
	"shop-assistant/internal/common/observability"
	"shop-assistant/internal/llm"
	"shop-assistant/internal/models"
	"shop-assistant/internal/prompt"
	"shop-assistant/internal/recommend"
)

const catalogueJSON = `{"products": [
  {"id": "holo-pack", "title": "Holographic sticker pack", "price": "4.50", "url": "shop/holo",
   "tags": "holographic, packs", "images": {"card": "//cdn.example.com/holo.png"}},
  {"handle": "die-cut-cat", "name": "Die-cut cat", "price": 2, "link": "https://shop.example.com/cat",
   "pitch": "Weatherproof vinyl"},
  {"sku": 77, "title": "Mystery bundle", "currency": "EUR"}
]}`

// Logger adapters bridge logger.Logger to the package Logger interfaces.
type catalogueLoggerAdapter struct {
	logger.Logger
}

func (a *catalogueLoggerAdapter) With(fields map[string]interface{}) catalogue.Logger {
	return &catalogueLoggerAdapter{a.Logger.With(fields)}
}

type llmLoggerAdapter struct {
	logger.Logger
}

func (a *llmLoggerAdapter) With(fields map[string]interface{}) llm.Logger {
	return &llmLoggerAdapter{a.Logger.With(fields)}
}

type chatLoggerAdapter struct {
	logger.Logger
}

func (a *chatLoggerAdapter) With(fields map[string]interface{}) chat.Logger {
	return &chatLoggerAdapter{a.Logger.With(fields)}
}

// fakeUpstream is an OpenAI-compatible chat completions endpoint that replies
// with a scripted assistant message and records what it was sent.
type fakeUpstream struct {
	mu       sync.Mutex
	status   int
	reply    string
	delay    time.Duration
	requests []map[string]interface{}
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req map[string]interface{}
	_ = json.Unmarshal(body, &req)

	f.mu.Lock()
	f.requests = append(f.requests, req)
	status, reply, delay := f.status, f.reply, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"error":{"message":"Rate limit reached for gpt-4o-mini","type":"rate_limit"}}`)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      "chatcmpl-e2e",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]interface{}{"role": "assistant", "content": reply},
		}},
	})
}

func (f *fakeUpstream) script(status int, reply string, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.reply, f.delay = status, reply, delay
}

func (f *fakeUpstream) last() map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

type gateway struct {
	server   *httptest.Server
	upstream *fakeUpstream
	store    *catalogue.Store
}

// startGateway wires the same graph as cmd/assistant-gateway, with the
// catalogue seeded into miniredis and the LLM replaced by fakeUpstream.
func startGateway(t *testing.T, apiKey string, llmTimeout time.Duration) *gateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)

	t.Setenv("OPENAI_API_KEY", apiKey)
	t.Setenv("CATALOGUE_SOURCE", "redis")
	t.Setenv("REDIS_ADDRESS", mr.Addr())
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, config.CatalogueSourceRedis, cfg.Catalogue.Source)

	log := logger.NewTestLogger(t)

	require.NoError(t, mr.Set(cfg.Catalogue.RedisKey, catalogueJSON))
	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	require.NoError(t, rdb.Ping(context.Background()))
	t.Cleanup(func() { _ = rdb.Close() })

	store := catalogue.Load(context.Background(),
		catalogue.RedisSource{Client: rdb.Client, Key: cfg.Catalogue.RedisKey},
		&catalogueLoggerAdapter{log})

	upstream := &fakeUpstream{}
	llmServer := httptest.NewServer(upstream)
	t.Cleanup(llmServer.Close)

	llmClient := llm.NewClient(&llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: llmServer.URL + "/v1",
		Timeout: llmTimeout,
	}, apphttp.NewClient(5*time.Second), &llmLoggerAdapter{log})

	assembler := prompt.NewAssembler(prompt.Config{
		BrandName:          cfg.Prompt.BrandName,
		ContextMaxChars:    cfg.Prompt.ContextMaxChars,
		HistoryLimit:       cfg.Prompt.HistoryLimit,
		MaxRecommendations: cfg.Prompt.MaxRecommendations,
		Decoding: models.DecodingConfig{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		},
	})

	obs := observability.New("shop-assistant-e2e")
	t.Cleanup(obs.Shutdown)

	orchestrator := chat.NewOrchestrator(chat.Dependencies{
		Catalogue: store,
		Assembler: assembler,
		Completer: llmClient,
		Extractor: recommend.NewExtractor(store, cfg.Prompt.MaxRecommendations),
		Recorder:  obs,
		Logger:    &chatLoggerAdapter{log},
	}, chat.Config{StrictDefault: cfg.Prompt.StrictDefault})

	handler := api.NewHandler(store, orchestrator, log, api.Options{
		AppName:      cfg.App.Name,
		Version:      "e2e",
		CORSOrigins:  cfg.Server.CORSOrigins,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)

	return &gateway{server: srv, upstream: upstream, store: store}
}

func (g *gateway) postChat(t *testing.T, body string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, g.server.URL+"/api/chat", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://stickers.example.com")

	resp, err := g.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func getJSON(t *testing.T, url string, into interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	return resp.StatusCode
}

func TestMain(m *testing.M) {
	// Run outside the repo so a developer's .env and configs/ stay out of it.
	dir, err := os.MkdirTemp("", "shop-assistant-e2e")
	if err == nil {
		_ = os.Chdir(dir)
	}
	code := m.Run()
	if dir != "" {
		_ = os.RemoveAll(dir)
	}
	os.Exit(code)
}

func TestFullE2E(t *testing.T) {
	gw := startGateway(t, "sk-e2e", 5*time.Second)

	t.Run("health reports catalogue size", func(t *testing.T) {
		var health models.HealthResponse
		assert.Equal(t, http.StatusOK, getJSON(t, gw.server.URL+"/health", &health))
		assert.True(t, health.OK)
		assert.Equal(t, 3, health.Products)
	})

	t.Run("products are normalized", func(t *testing.T) {
		var products models.ProductsResponse
		require.Equal(t, http.StatusOK, getJSON(t, gw.server.URL+"/api/products", &products))
		require.Equal(t, 3, products.Count)

		holo := products.Products[0]
		assert.Equal(t, "holo-pack", holo.ID)
		assert.Equal(t, "/shop/holo", holo.URL)
		assert.Equal(t, "https://cdn.example.com/holo.png", holo.Thumb)
		assert.Equal(t, []string{"holographic", "packs"}, holo.Tags)
		require.NotNil(t, holo.Price)
		assert.InDelta(t, 4.5, *holo.Price, 1e-9)

		mystery := products.Products[2]
		assert.Equal(t, "77", mystery.ID)
		assert.Equal(t, "#", mystery.URL)
		assert.Equal(t, "EUR", mystery.Currency)
		assert.Nil(t, mystery.Price)
	})

	t.Run("chat resolves recommendations", func(t *testing.T) {
		gw.upstream.script(http.StatusOK,
			"Our holographic pack is a great pick.\nPRODUCTS_JSON=[{\"id\":\"holo-pack\",\"note\":\"shiny\"},{\"id\":\"unknown\"},{\"id\":77},{\"id\":\"holo-pack\"}]", 0)

		status, body := gw.postChat(t, `{
			"messages": [{"role": "user", "content": "Anything shiny?"}],
			"context": "Holographic stickers catch the light."
		}`)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Our holographic pack is a great pick.", body["reply"])

		products, ok := body["products"].([]interface{})
		require.True(t, ok)
		require.Len(t, products, 2)
		assert.Equal(t, "holo-pack", products[0].(map[string]interface{})["id"])
		assert.Equal(t, "77", products[1].(map[string]interface{})["id"])

		sent := gw.upstream.last()
		require.NotNil(t, sent)
		assert.Equal(t, "gpt-4o-mini", sent["model"])
		messages := sent["messages"].([]interface{})
		system := messages[0].(map[string]interface{})
		assert.Equal(t, "system", system["role"])
		assert.Contains(t, system["content"], "https://stickers.example.com")

		var joined strings.Builder
		for _, m := range messages {
			joined.WriteString(m.(map[string]interface{})["content"].(string))
		}
		assert.Contains(t, joined.String(), "Holographic stickers catch the light.")
		assert.Contains(t, joined.String(), `"id":"die-cut-cat"`)
		last := messages[len(messages)-1].(map[string]interface{})
		assert.Equal(t, "user", last["role"])
		assert.Equal(t, "Anything shiny?", last["content"])
	})

	t.Run("malformed marker degrades to no products", func(t *testing.T) {
		gw.upstream.script(http.StatusOK, "Try the cat.\nPRODUCTS_JSON=[\"die-cut-cat\"", 0)

		status, body := gw.postChat(t, `{"messages":[{"role":"user","content":"cats?"}]}`)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Try the cat.", body["reply"])
		assert.Empty(t, body["products"])
	})

	t.Run("strict request sends the strict policy", func(t *testing.T) {
		gw.upstream.script(http.StatusOK, prompt.StrictRefusal, 0)

		status, body := gw.postChat(t, `{"messages":[{"role":"user","content":"Do you sell mugs?"}],"context":"Stickers only.","strict":true}`)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, prompt.StrictRefusal, body["reply"])

		system := gw.upstream.last()["messages"].([]interface{})[0].(map[string]interface{})
		assert.Contains(t, system["content"], prompt.StrictRefusal)
	})

	t.Run("upstream error is surfaced", func(t *testing.T) {
		gw.upstream.script(http.StatusTooManyRequests, "", 0)

		status, body := gw.postChat(t, `{"messages":[{"role":"user","content":"hi"}]}`)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "Rate limit reached for gpt-4o-mini", body["error"])
	})

	t.Run("invalid request is rejected", func(t *testing.T) {
		status, body := gw.postChat(t, `{"messages":[{"role":"tool","content":"hi"}]}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_REQUEST", body["code"])
	})

	t.Run("metrics are exported", func(t *testing.T) {
		resp, err := http.Get(gw.server.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "assistant_chat_requests_total")
	})
}

func TestE2E_MissingCredential(t *testing.T) {
	gw := startGateway(t, "", 5*time.Second)

	status, body := gw.postChat(t, `{"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Missing LLM API key (set OPENAI_API_KEY)", body["error"])
	assert.Nil(t, gw.upstream.last(), "no upstream call without a credential")
}

func TestE2E_UpstreamTimeout(t *testing.T) {
	gw := startGateway(t, "sk-e2e", 100*time.Millisecond)
	gw.upstream.script(http.StatusOK, "too late", time.Second)

	status, body := gw.postChat(t, `{"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "BACKEND_TIMEOUT", body["code"])
}

func TestE2E_FileCatalogue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"solo","title":"Solo"}]`), 0o600))

	store := catalogue.Load(context.Background(), catalogue.FileSource{Path: path},
		&catalogueLoggerAdapter{logger.NewTestLogger(t)})
	assert.Equal(t, 1, store.Len())

	missing := catalogue.Load(context.Background(), catalogue.FileSource{Path: path + ".missing"},
		&catalogueLoggerAdapter{logger.NewTestLogger(t)})
	assert.Equal(t, 0, missing.Len())
}

func BenchmarkChatRoundTrip(b *testing.B) {
	gin.SetMode(gin.TestMode)
	log := logger.NewNoOpLogger()

	raws, err := catalogue.Parse([]byte(catalogueJSON))
	require.NoError(b, err)
	store := catalogue.NewStore(raws)

	upstream := &fakeUpstream{reply: "Here you go.\nPRODUCTS_JSON=[{\"id\":\"holo-pack\"}]"}
	llmServer := httptest.NewServer(upstream)
	defer llmServer.Close()

	orchestrator := chat.NewOrchestrator(chat.Dependencies{
		Catalogue: store,
		Assembler: prompt.NewAssembler(prompt.Config{}),
		Completer: llm.NewClient(&llm.Config{APIKey: "sk-bench", BaseURL: llmServer.URL + "/v1"},
			apphttp.NewClient(5*time.Second), &llmLoggerAdapter{log}),
		Extractor: recommend.NewExtractor(store, 3),
		Logger:    &chatLoggerAdapter{log},
	}, chat.Config{})

	req := chat.Request{Messages: []models.Message{{Role: models.RoleUser, Content: "shiny?"}}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		resp, err := orchestrator.Handle(context.Background(), req)
		if err != nil || len(resp.Products) != 1 {
			b.Fatalf("unexpected result: %v %v", resp, err)
		}
	}
}
