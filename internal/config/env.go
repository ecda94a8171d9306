package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level      string
    Pretty     bool
    File       string
    MaxSizeMB  int
    MaxBackups int
    MaxAgeDays int
    Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// ProviderModels defines the model pair for a provider.
type ProviderModels struct {
    Primary   string
    Secondary string
}

// ProvidersConfig defines engines and models for AI chapter detection.
type ProvidersConfig struct {
    PrimaryEngine   string // "gemini"|"openai"|"anthropic"
    SecondaryEngine string
    OpenAI          ProviderModels
    Anthropic       ProviderModels
    Gemini          ProviderModels
}

// DetectConfig defines AI detection behavior and limits.
type DetectConfig struct {
    RequestTimeout     time.Duration
    MaxPromptChars     int
    BreakerBaseBackoff time.Duration
    BreakerMaxBackoff  time.Duration
}

// ExportConfig defines chapter export behavior.
type ExportConfig struct {
    OutputDir string
    S3Bucket  string // when set, exported chapters are also uploaded
    S3Prefix  string
}

// SessionConfig defines session store connectivity.
type SessionConfig struct {
    RedisURL string // empty selects the in-memory store
    TTL      time.Duration
}

// WebConfig defines the dashboard server.
type WebConfig struct {
    Port      string
    Username  string
    Password  string
    UploadDir string
}

// Config is the top-level configuration.
type Config struct {
    Logging   LoggingConfig
    Axiom     AxiomConfig
    Providers ProvidersConfig
    Detect    DetectConfig
    Export    ExportConfig
    Session   SessionConfig
    Web       WebConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
    cfg := Config{}

    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", "logs/chaptersplit.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_chaptersplit",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
    }

    cfg.Providers = ProvidersConfig{
        PrimaryEngine:   getEnv("PRIMARY_ENGINE", "gemini"),
        SecondaryEngine: getEnv("SECONDARY_ENGINE", "openai"),
        OpenAI: ProviderModels{
            Primary:   getEnv("OPENAI_PRIMARY_MODEL", "gpt-4.1"),
            Secondary: getEnv("OPENAI_SECONDARY_MODEL", "gpt-4o"),
        },
        Anthropic: ProviderModels{
            Primary:   getEnv("ANTHROPIC_PRIMARY_MODEL", "claude-3-5-sonnet"),
            Secondary: getEnv("ANTHROPIC_SECONDARY_MODEL", "claude-3-haiku"),
        },
        Gemini: ProviderModels{
            Primary:   getEnv("GEMINI_PRIMARY_MODEL", "gemini-2.5-flash"),
            Secondary: getEnv("GEMINI_SECONDARY_MODEL", "gemini-2.0-flash"),
        },
    }

    cfg.Detect = DetectConfig{
        RequestTimeout:     parseDuration(getEnv("DETECT_REQUEST_TIMEOUT", "120s"), 120*time.Second),
        MaxPromptChars:     parseInt(getEnv("DETECT_MAX_PROMPT_CHARS", "400000"), 400000),
        BreakerBaseBackoff: parseDuration(getEnv("BREAKER_BASE_BACKOFF", "30s"), 30*time.Second),
        BreakerMaxBackoff:  parseDuration(getEnv("BREAKER_MAX_BACKOFF", "5m"), 5*time.Minute),
    }

    cfg.Export = ExportConfig{
        OutputDir: getEnv("EXPORT_DIR", "chapters"),
        S3Bucket:  getEnv("EXPORT_S3_BUCKET", ""),
        S3Prefix:  getEnv("EXPORT_S3_PREFIX", "chapters"),
    }

    cfg.Session = SessionConfig{
        RedisURL: getEnv("REDIS_URL", ""),
        TTL:      parseDuration(getEnv("SESSION_TTL", "24h"), 24*time.Hour),
    }

    cfg.Web = WebConfig{
        Port:      getEnv("PORT", "8080"),
        Username:  getEnv("WEB_USERNAME", ""),
        Password:  getEnv("WEB_PASSWORD", ""),
        UploadDir: getEnv("UPLOAD_DIR", "uploads"),
    }

    return cfg
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}
