package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/livecheck/internal/llm"
	"github.com/ppiankov/livecheck/internal/model"
)

func TestRenderDefaultConfig_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := renderDefaultConfig(&buf); err != nil {
		t.Fatalf("renderDefaultConfig failed: %v", err)
	}

	if !strings.HasPrefix(buf.String(), "# livecheck configuration file") {
		t.Fatalf("Expected header comment, got %q", buf.String()[:40])
	}

	cfg := &model.Config{}
	if err := yaml.Unmarshal(buf.Bytes(), cfg); err != nil {
		t.Fatalf("Expected rendered config to parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected rendered config to validate: %v", err)
	}
	if cfg.Server.PingInterval != 50*time.Second {
		t.Errorf("Expected ping interval 50s, got %v", cfg.Server.PingInterval)
	}
	if strings.Contains(buf.String(), "api_key") {
		t.Error("Expected api key to be omitted from the file")
	}
}

func TestSetDefaults_EnvOverride(t *testing.T) {
	t.Setenv("LIVECHECK_SERVER_ADDR", ":9999")
	t.Setenv("LIVECHECK_SYNTHESIS_TOP_N", "5")
	t.Setenv("LIVECHECK_EVIDENCE_FETCH_TIMEOUT", "3s")

	v := viper.New()
	v.SetEnvPrefix("LIVECHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := setDefaults(v, model.DefaultConfig()); err != nil {
		t.Fatalf("setDefaults failed: %v", err)
	}

	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if cfg.Server.Addr != ":9999" {
		t.Errorf("Expected addr :9999, got %q", cfg.Server.Addr)
	}
	if cfg.Synthesis.TopN != 5 {
		t.Errorf("Expected top_n 5, got %d", cfg.Synthesis.TopN)
	}
	if cfg.Evidence.FetchTimeout != 3*time.Second {
		t.Errorf("Expected fetch timeout 3s, got %v", cfg.Evidence.FetchTimeout)
	}
	if cfg.Evidence.MaxResults != 10 {
		t.Errorf("Expected untouched default max_results 10, got %d", cfg.Evidence.MaxResults)
	}
}

func TestApplyEnvKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")

	cfg := model.DefaultConfig()
	applyEnvKeys(cfg)
	if cfg.LLM.APIKey != "sk-openai" {
		t.Errorf("Expected OpenAI key, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.SynthesisModel != "gpt-4o" {
		t.Errorf("Expected OpenAI synthesis model to stay, got %q", cfg.LLM.SynthesisModel)
	}

	cfg = model.DefaultConfig()
	cfg.LLM.Provider = "anthropic"
	applyEnvKeys(cfg)
	if cfg.LLM.APIKey != "sk-ant" {
		t.Errorf("Expected Anthropic key, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.SynthesisModel != "" {
		t.Errorf("Expected OpenAI synthesis model to be cleared, got %q", cfg.LLM.SynthesisModel)
	}
	if openAIKey(cfg) != "sk-openai" {
		t.Errorf("Expected transcription to use OPENAI_API_KEY, got %q", openAIKey(cfg))
	}

	cfg = model.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	applyEnvKeys(cfg)
	if cfg.LLM.BaseURL != "http://ollama:11434" {
		t.Errorf("Expected Ollama base URL from env, got %q", cfg.LLM.BaseURL)
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger(model.LogConfig{Level: "debug", Development: true}); err != nil {
		t.Fatalf("Expected development logger, got %v", err)
	}
	if _, err := newLogger(model.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("Expected error for unknown level")
	}
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer

	printEvent(&buf, model.NewStatus(model.PhaseAnalysis, 40, "Analyzing sources..."))
	printEvent(&buf, model.NewSearch("moon composition", nil))
	printEvent(&buf, model.NewFactCheck(&model.VerificationResult{
		Claim:          "The moon is made of cheese.",
		VerdictSummary: "The Moon is rock.",
		SupportLabel:   model.SupportDoesNotSupport,
		AggregateScore: 82.5,
	}))
	printEvent(&buf, model.NewError("boom"))

	out := buf.String()
	for _, want := range []string{
		"[ 40%] Analyzing sources...",
		"query: moon composition",
		"Truth score: 82.5/100",
		"Verdict:     doesNotSupport",
		"error: boom",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

type offlineProvider struct {
	*llm.MockProvider
}

func (offlineProvider) IsAvailable(context.Context) bool { return false }

func TestCheckProvider(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	if !checkProvider(context.Background(), llm.NewMockProvider(), logger) {
		t.Error("Expected mock provider to be available")
	}
	if checkProvider(context.Background(), offlineProvider{llm.NewMockProvider()}, logger) {
		t.Error("Expected offline provider to be unavailable")
	}

	warnings := logs.FilterLevelExact(zap.WarnLevel).All()
	if len(warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %d", len(warnings))
	}
	if warnings[0].ContextMap()["provider"] != "mock" {
		t.Errorf("Expected provider field, got %v", warnings[0].ContextMap())
	}
}
