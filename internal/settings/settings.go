// Package settings persists the user's provider, model, and API key. The
// key is encrypted at rest with AES-256-GCM when MYNERVA_SECRET_KEY is set;
// stored ciphertext carries the "encrypted:" prefix so plaintext written by
// older versions still loads.
package settings

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	encryptedPrefix = "encrypted:"
	secretKeyEnv    = "MYNERVA_SECRET_KEY"

	DefaultProvider = "openai"
	DefaultModel    = "gpt-5.2"
)

// ErrSecretKeyRequired is returned when stored ciphertext cannot be
// decrypted because the secret key is not configured.
var ErrSecretKeyRequired = errors.New("MYNERVA_SECRET_KEY is required to decrypt the stored API key")

// Settings is the persisted configuration. APIKey is held decrypted in
// memory and never logged.
type Settings struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"apiKey"`
}

// Store reads and writes the settings file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore uses an explicit path; DefaultPath puts it under the home
// directory like the rest of the engine's state.
func NewStore(path string) *Store {
	return &Store{path: path}
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mynerva", "config.json"), nil
}

// EncryptionConfigured reports whether at-rest encryption is active.
func EncryptionConfigured() bool {
	return os.Getenv(secretKeyEnv) != ""
}

// Load returns the stored settings with the API key decrypted, or defaults
// when no file exists yet.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{Provider: DefaultProvider, Model: DefaultModel}, nil
		}
		return Settings{}, err
	}
	var cfg Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Settings{}, fmt.Errorf("settings file %s: %w", s.path, err)
	}
	cfg.APIKey, err = decryptKey(cfg.APIKey)
	if err != nil {
		return Settings{}, err
	}
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return cfg, nil
}

// Save writes the settings, encrypting the API key when a secret key is
// configured.
func (s *Store) Save(cfg Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cfg
	enc, err := encryptKey(cfg.APIKey)
	if err != nil {
		return err
	}
	stored.APIKey = enc

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// ResolveAPIKey falls back to the provider's conventional environment
// variable when no key is stored.
func ResolveAPIKey(cfg Settings) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	switch cfg.Provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "google":
		return os.Getenv("GEMINI_API_KEY")
	}
	return ""
}

// cipherKey derives the AES key from the environment secret.
func cipherKey() ([]byte, bool) {
	secret := os.Getenv(secretKeyEnv)
	if secret == "" {
		return nil, false
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:], true
}

func encryptKey(apiKey string) (string, error) {
	if apiKey == "" {
		return "", nil
	}
	key, ok := cipherKey()
	if !ok {
		return apiKey, nil
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(apiKey), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func decryptKey(stored string) (string, error) {
	if !strings.HasPrefix(stored, encryptedPrefix) {
		return stored, nil
	}
	key, ok := cipherKey()
	if !ok {
		return "", ErrSecretKeyRequired
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, encryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("stored API key is corrupt: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", errors.New("stored API key is corrupt: truncated")
	}
	plain, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("stored API key could not be decrypted: %w", err)
	}
	return string(plain), nil
}
