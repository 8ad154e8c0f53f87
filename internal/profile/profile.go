package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where plume stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// Secret signs access tokens
	Secret string // PLUME_SECRET
	// TokenTTLMinutes is the access token lifetime in minutes
	TokenTTLMinutes int // PLUME_TOKEN_TTL_MINUTES (default: 30)

	// LLM configuration
	LLMAPIKey    string // PLUME_LLM_API_KEY
	LLMBaseURL   string // PLUME_LLM_BASE_URL (default: https://api.openai.com/v1)
	LLMModel     string // PLUME_LLM_MODEL (default: gpt-3.5-turbo)
	LLMMaxTokens int    // PLUME_LLM_MAX_TOKENS (default: 500)

	// Voice configuration
	STTProvider      string // PLUME_STT_PROVIDER (default: whisper)
	TTSProvider      string // PLUME_TTS_PROVIDER (default: elevenlabs)
	WhisperModel     string // PLUME_WHISPER_MODEL (default: whisper-1)
	ElevenLabsAPIKey string // PLUME_ELEVENLABS_API_KEY

	// Engine tuning
	ContextMaxHistory int // PLUME_CONTEXT_MAX_HISTORY (default: 10)
	ContextMaxTokens  int // PLUME_CONTEXT_MAX_TOKENS (default: 4000)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable parsed as an integer, or
// zero when unset or malformed.
func getEnvInt(key string) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return value
}

// FromEnv fills provider settings from environment variables.
// Values already set (e.g. from flags) are kept.
func (p *Profile) FromEnv() {
	if p.LLMAPIKey == "" {
		p.LLMAPIKey = os.Getenv("PLUME_LLM_API_KEY")
	}
	if p.LLMBaseURL == "" {
		p.LLMBaseURL = getEnvOrDefault("PLUME_LLM_BASE_URL", "https://api.openai.com/v1")
	}
	if p.LLMModel == "" {
		p.LLMModel = getEnvOrDefault("PLUME_LLM_MODEL", "gpt-3.5-turbo")
	}
	if p.STTProvider == "" {
		p.STTProvider = getEnvOrDefault("PLUME_STT_PROVIDER", "whisper")
	}
	if p.TTSProvider == "" {
		p.TTSProvider = getEnvOrDefault("PLUME_TTS_PROVIDER", "elevenlabs")
	}
	if p.WhisperModel == "" {
		p.WhisperModel = getEnvOrDefault("PLUME_WHISPER_MODEL", "whisper-1")
	}
	if p.ElevenLabsAPIKey == "" {
		p.ElevenLabsAPIKey = os.Getenv("PLUME_ELEVENLABS_API_KEY")
	}
	if p.Secret == "" {
		p.Secret = os.Getenv("PLUME_SECRET")
	}
	if p.LLMMaxTokens == 0 {
		p.LLMMaxTokens = getEnvInt("PLUME_LLM_MAX_TOKENS")
	}
	if p.TokenTTLMinutes == 0 {
		p.TokenTTLMinutes = getEnvInt("PLUME_TOKEN_TTL_MINUTES")
	}
	if p.ContextMaxHistory == 0 {
		p.ContextMaxHistory = getEnvInt("PLUME_CONTEXT_MAX_HISTORY")
	}
	if p.ContextMaxTokens == 0 {
		p.ContextMaxTokens = getEnvInt("PLUME_CONTEXT_MAX_TOKENS")
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver: %s", p.Driver)
	}

	if p.Mode == "prod" && p.Secret == "" {
		return errors.New("PLUME_SECRET is required in prod mode")
	}
	if p.Secret == "" {
		// Dev fallback only.
		p.Secret = "plume-dev-secret"
	}

	if p.TokenTTLMinutes <= 0 {
		p.TokenTTLMinutes = 30
	}
	if p.LLMMaxTokens <= 0 {
		p.LLMMaxTokens = 500
	}
	if p.ContextMaxHistory <= 0 {
		p.ContextMaxHistory = 10
	}
	if p.ContextMaxTokens <= 0 {
		p.ContextMaxTokens = 4000
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return errors.Wrap(err, "failed to check data directory")
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("plume_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("DSN is required for the postgres driver")
	}

	return nil
}
