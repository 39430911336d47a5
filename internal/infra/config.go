package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv        string
	Port          string
	DataDir       string
	SessionSecret string

	DiscordBotToken     string
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURI  string
	MainGuildID         string
	AuthorizedGuildIDs  []string
	StaffRoleIDs        []string
	StaffRoleNames      []string
	RequireStaffRole    bool

	BotAPIURL string

	RobloxAPIKey           string
	RobloxCreatorID        string
	RobloxUploadToGroup    bool
	RobloxThumbnailsURL    string
	RobloxAssetDeliveryURL string
	RobloxAPIsURL          string
	ResolveRequestTimeout  time.Duration
	UploadResolveRetries   int
	StatusResolveRetries   int
	UploadMaxBytes         int64

	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "5000")
	mainGuild := getEnv("DISCORD_MAIN_GUILD_ID", "1239943702336766004")
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          port,
		DataDir:       getEnv("DATA_DIR", ".."),
		SessionSecret: os.Getenv("SESSION_SECRET"),

		DiscordBotToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordRedirectURI:  getEnv("DISCORD_REDIRECT_URI", "http://localhost:"+port+"/api/auth/callback"),
		MainGuildID:         mainGuild,
		AuthorizedGuildIDs:  mergeUnique([]string{mainGuild}, getEnvList("DISCORD_AUTHORIZED_GUILD_IDS")),
		StaffRoleIDs:        getEnvList("DISCORD_STAFF_ROLE_IDS"),
		StaffRoleNames:      getEnvList("DISCORD_STAFF_ROLE_NAMES"),
		RequireStaffRole:    getEnvBool("AUTH_REQUIRE_STAFF", false),

		BotAPIURL: getEnv("BOT_API_URL", "http://localhost:5001"),

		RobloxAPIKey:           os.Getenv("ROBLOX_API_KEY"),
		RobloxCreatorID:        os.Getenv("ROBLOX_CREATOR_ID"),
		RobloxUploadToGroup:    getEnvBool("ROBLOX_UPLOAD_TO_GROUP", false),
		RobloxThumbnailsURL:    getEnv("ROBLOX_THUMBNAILS_URL", "https://thumbnails.roblox.com"),
		RobloxAssetDeliveryURL: getEnv("ROBLOX_ASSET_DELIVERY_URL", "https://assetdelivery.roblox.com"),
		RobloxAPIsURL:          getEnv("ROBLOX_APIS_URL", "https://apis.roblox.com"),
		ResolveRequestTimeout:  time.Second * time.Duration(getEnvInt("RESOLVE_REQUEST_TIMEOUT_SECONDS", 20)),
		UploadResolveRetries:   getEnvInt("UPLOAD_RESOLVE_RETRIES", 3),
		StatusResolveRetries:   getEnvInt("STATUS_RESOLVE_RETRIES", 10),
		UploadMaxBytes:         int64(getEnvInt("UPLOAD_MAX_BYTES", 10<<20)),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		// The status endpoint polls Roblox for minutes in the worst case.
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 600)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	if cfg.UploadResolveRetries < 1 || cfg.StatusResolveRetries < 1 {
		return nil, fmt.Errorf("resolve retries must be at least 1")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"http://localhost:" + port}
	}

	return cfg, nil
}

// OAuthConfigured reports whether Discord login can be offered.
func (c *Config) OAuthConfigured() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != ""
}

// UploadConfigured reports whether Roblox uploads can be performed.
func (c *Config) UploadConfigured() bool {
	return c.RobloxAPIKey != "" && c.RobloxCreatorID != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func mergeUnique(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// DurationFromEnv reads a number of seconds from key.
func DurationFromEnv(key string, fallbackSeconds int) time.Duration {
	return time.Second * time.Duration(getEnvInt(key, fallbackSeconds))
}
