package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every override so file and default values are observable.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"API_KEY", "OPENAI_API_KEY", "BASE_URL",
		"EMBEDDING_MODEL", "CHAT_MODEL", "SUMMARY_MODEL", "TRANSCRIBE_MODEL",
		"STORAGE_ROOT", "POSTGRES_URL", "MILVUS_ADDR",
		"PROVIDER_TIMEOUT_SECS", "EMBED_CONCURRENCY",
	} {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.EmbeddingModel != "text-embedding-ada-002" {
		t.Errorf("embedding model = %q", cfg.EmbeddingModel)
	}
	if cfg.ChatModel != "gpt-3.5-turbo" {
		t.Errorf("chat model = %q", cfg.ChatModel)
	}
	if cfg.SummaryModel != "gpt-4" {
		t.Errorf("summary model = %q", cfg.SummaryModel)
	}
	if cfg.TranscribeModel != "whisper-1" {
		t.Errorf("transcribe model = %q", cfg.TranscribeModel)
	}
	if cfg.StorageRoot != "storage" {
		t.Errorf("storage root = %q", cfg.StorageRoot)
	}
	if cfg.ProviderTimeoutSecs != 60 || cfg.EmbedConcurrency != 8 {
		t.Errorf("timeout/concurrency = %d/%d", cfg.ProviderTimeoutSecs, cfg.EmbedConcurrency)
	}
	if cfg.APIKey != "" {
		t.Errorf("api key should default empty, got %q", cfg.APIKey)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "config.yaml", "api_key: sk-file\nchat_model: gpt-4o-mini\nstorage_root: /tmp/meetings\n")

	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.APIKey != "sk-file" || cfg.ChatModel != "gpt-4o-mini" || cfg.StorageRoot != "/tmp/meetings" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.SummaryModel != "gpt-4" {
		t.Fatalf("unset file field should keep default, got %q", cfg.SummaryModel)
	}
}

func TestLoadConfigFromJSON(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "config.json", `{"api_key": "sk-json", "embed_concurrency": 3}`)

	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.APIKey != "sk-json" || cfg.EmbedConcurrency != 3 {
		t.Fatalf("json values not applied: %+v", cfg)
	}
}

func TestLoadConfigFromMissingFile(t *testing.T) {
	if _, err := LoadConfigFrom(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "sk-env")
	t.Setenv("PROVIDER_TIMEOUT_SECS", "5")
	path := writeConfigFile(t, "config.yaml", "api_key: sk-file\nprovider_timeout_secs: 120\n")

	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.APIKey != "sk-env" {
		t.Fatalf("env should win over file, got %q", cfg.APIKey)
	}
	if cfg.ProviderTimeoutSecs != 5 {
		t.Fatalf("timeout = %d", cfg.ProviderTimeoutSecs)
	}
}

func TestOpenAIKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if cfg.APIKey != "sk-openai" {
		t.Fatalf("OPENAI_API_KEY fallback not applied, got %q", cfg.APIKey)
	}

	t.Setenv("API_KEY", "sk-primary")
	cfg = defaultConfig()
	applyEnvOverrides(cfg)
	if cfg.APIKey != "sk-primary" {
		t.Fatalf("API_KEY should win, got %q", cfg.APIKey)
	}
}

func TestBadNumericEnvIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROVIDER_TIMEOUT_SECS", "soon")
	t.Setenv("EMBED_CONCURRENCY", "-2")
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if cfg.ProviderTimeoutSecs != 60 || cfg.EmbedConcurrency != 8 {
		t.Fatalf("bad numeric env should keep defaults: %d/%d", cfg.ProviderTimeoutSecs, cfg.EmbedConcurrency)
	}
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "API key is required") {
		t.Fatalf("expected API key error, got %v", err)
	}

	cfg.APIKey = "sk-test"
	cfg.StorageRoot = "  "
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "Storage root is required") {
		t.Fatalf("expected storage root error, got %v", err)
	}

	cfg.StorageRoot = "storage"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestProviderTimeout(t *testing.T) {
	if d := (&Config{ProviderTimeoutSecs: 7}).ProviderTimeout(); d != 7*time.Second {
		t.Errorf("timeout = %v", d)
	}
	if d := (&Config{}).ProviderTimeout(); d != 60*time.Second {
		t.Errorf("zero timeout should fall back to 60s, got %v", d)
	}
}

func TestHasValidAPI(t *testing.T) {
	if (&Config{}).HasValidAPI() {
		t.Error("empty key should be invalid")
	}
	if (&Config{APIKey: "   "}).HasValidAPI() {
		t.Error("blank key should be invalid")
	}
	if !(&Config{APIKey: "sk-test"}).HasValidAPI() {
		t.Error("non-empty key should be valid")
	}
}
