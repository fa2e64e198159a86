package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Gemini  GeminiConfig  `toml:"gemini"`
	Tableau TableauConfig `toml:"tableau"`
	Store   StoreConfig   `toml:"store"`
	Client  ClientConfig  `toml:"client"`
}

type ServerConfig struct {
	Port           string   `toml:"port"`
	Env            string   `toml:"env"`
	AllowedOrigins []string `toml:"allowed_origins"`
	ChatRateLimit  int      `toml:"chat_rate_limit"` // requests per minute per IP, 0 disables
}

type GeminiConfig struct {
	APIKey             string  `toml:"-"` // env only, never in the config file
	Model              string  `toml:"model"`
	Temperature        float64 `toml:"temperature"`
	ConcurrentRequests int     `toml:"concurrent_requests"`
}

// TableauConfig selects and configures the host environment. WorkbookFile
// takes precedence over ServerURL when both are set.
type TableauConfig struct {
	ServerURL    string `toml:"server_url"`
	Site         string `toml:"site"`
	Workbook     string `toml:"workbook"`
	WorkbookFile string `toml:"workbook_file"`
	Username     string `toml:"username"`

	// Credentials, env only. A personal access token wins when both the
	// PAT pair and a connected app are configured.
	PATName     string `toml:"-"`
	PATSecret   string `toml:"-"`
	ClientID    string `toml:"-"`
	SecretID    string `toml:"-"`
	SecretValue string `toml:"-"`
}

type StoreConfig struct {
	DatabaseURL     string `toml:"-"` // env only
	RedisURL        string `toml:"-"` // env only
	RetentionDays   int    `toml:"retention_days"` // 0 keeps everything
	RecorderWorkers int    `toml:"recorder_workers"`
}

type ClientConfig struct {
	BackendURL string `toml:"backend_url"`
	Worksheet  string `toml:"worksheet"`
}

// DefaultConfig returns the configuration used when no file and no
// environment overrides are present. The origin list matches the hosts a
// dashboard extension is typically served from.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Env:  "development",
			AllowedOrigins: []string{
				"http://127.0.0.1:8000",
				"http://localhost:8000",
				"https://us-east-1.online.tableau.com",
			},
			ChatRateLimit: 30,
		},
		Gemini: GeminiConfig{
			Model:              "gemini-2.5-flash",
			Temperature:        0.3,
			ConcurrentRequests: 5,
		},
		Store: StoreConfig{
			RetentionDays:   30,
			RecorderWorkers: 2,
		},
		Client: ClientConfig{
			BackendURL: "http://localhost:8000",
		},
	}
}

// Load builds the effective configuration: defaults, then the TOML file
// (optional unless a path was given explicitly), then environment
// variables. Command-line flags are applied by the caller on top.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	cfg := DefaultConfig()

	explicit := path != ""
	if path == "" {
		path = "assistant.toml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file is fine; defaults plus env carry local mode.
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnvOrDefault("PORT", cfg.Server.Port)
	cfg.Server.Env = getEnvOrDefault("ENV", cfg.Server.Env)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = splitAndTrim(origins)
	}
	cfg.Server.ChatRateLimit = getEnvAsIntOrDefault("CHAT_RATE_LIMIT", cfg.Server.ChatRateLimit)

	cfg.Gemini.APIKey = getEnvOrDefault("GEMINI_API_KEY", cfg.Gemini.APIKey)
	cfg.Gemini.Model = getEnvOrDefault("GEMINI_MODEL", cfg.Gemini.Model)
	cfg.Gemini.Temperature = getEnvAsFloatOrDefault("GEMINI_TEMPERATURE", cfg.Gemini.Temperature)
	cfg.Gemini.ConcurrentRequests = getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", cfg.Gemini.ConcurrentRequests)

	cfg.Tableau.ServerURL = getEnvOrDefault("TABLEAU_SERVER_URL", cfg.Tableau.ServerURL)
	cfg.Tableau.Site = getEnvOrDefault("TABLEAU_SITE", cfg.Tableau.Site)
	cfg.Tableau.Workbook = getEnvOrDefault("TABLEAU_WORKBOOK", cfg.Tableau.Workbook)
	cfg.Tableau.WorkbookFile = getEnvOrDefault("TABLEAU_WORKBOOK_FILE", cfg.Tableau.WorkbookFile)
	cfg.Tableau.Username = getEnvOrDefault("TABLEAU_USERNAME", cfg.Tableau.Username)
	cfg.Tableau.PATName = getEnvOrDefault("TABLEAU_PAT_NAME", cfg.Tableau.PATName)
	cfg.Tableau.PATSecret = getEnvOrDefault("TABLEAU_PAT_SECRET", cfg.Tableau.PATSecret)
	cfg.Tableau.ClientID = getEnvOrDefault("TABLEAU_CLIENT_ID", cfg.Tableau.ClientID)
	cfg.Tableau.SecretID = getEnvOrDefault("TABLEAU_SECRET_ID", cfg.Tableau.SecretID)
	cfg.Tableau.SecretValue = getEnvOrDefault("TABLEAU_SECRET_VALUE", cfg.Tableau.SecretValue)

	cfg.Store.DatabaseURL = getEnvOrDefault("DATABASE_URL", cfg.Store.DatabaseURL)
	cfg.Store.RedisURL = getEnvOrDefault("REDIS_URL", cfg.Store.RedisURL)
	cfg.Store.RetentionDays = getEnvAsIntOrDefault("RETENTION_DAYS", cfg.Store.RetentionDays)
	cfg.Store.RecorderWorkers = getEnvAsIntOrDefault("RECORDER_WORKERS", cfg.Store.RecorderWorkers)

	cfg.Client.BackendURL = getEnvOrDefault("BACKEND_URL", cfg.Client.BackendURL)
	cfg.Client.Worksheet = getEnvOrDefault("WORKSHEET", cfg.Client.Worksheet)
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}
