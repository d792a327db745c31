// Package keys stores provider API keys write-only: callers can set, clear,
// and ask for presence, but secret values are only released to the backend
// clients that need them.
package keys

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	secretsFile   = "secrets.enc"
	masterKeyFile = "vault.key"
)

// Keys is the stored credential pair. Empty strings mean "not set".
type Keys struct {
	GroqAPIKey   string `json:"groqApiKey,omitempty"`
	GeminiAPIKey string `json:"geminiApiKey,omitempty"`
}

// Presence reports which credentials exist without exposing their values.
type Presence struct {
	HasGroq   bool `json:"hasGroq"`
	HasGemini bool `json:"hasGemini"`
}

// Vault seals the credential file under a machine-local master key.
type Vault struct {
	dir string
}

// NewVault roots a vault at dir. The directory is created on first write.
func NewVault(dir string) *Vault {
	return &Vault{dir: dir}
}

// Presence reads stored keys and reports presence booleans only. A missing or
// unreadable secrets file reads as "nothing set".
func (v *Vault) Presence() Presence {
	current, err := v.read()
	if err != nil {
		return Presence{}
	}
	return Presence{
		HasGroq:   current.GroqAPIKey != "",
		HasGemini: current.GeminiAPIKey != "",
	}
}

// Set overlays the provided values onto the stored pair. Nil or empty values
// leave the stored field unchanged. When both fields end up empty the secrets
// file is removed entirely.
func (v *Vault) Set(groq *string, gemini *string) error {
	current, err := v.read()
	if err != nil {
		return err
	}

	if groq != nil && strings.TrimSpace(*groq) != "" {
		current.GroqAPIKey = *groq
	}
	if gemini != nil && strings.TrimSpace(*gemini) != "" {
		current.GeminiAPIKey = *gemini
	}

	return v.write(current)
}

// Clear removes one credential ("groq" or "gemini") or both (any other value).
func (v *Vault) Clear(which string) error {
	current, err := v.read()
	if err != nil {
		return err
	}

	switch which {
	case "groq":
		current.GroqAPIKey = ""
	case "gemini":
		current.GeminiAPIKey = ""
	default:
		current = Keys{}
	}

	return v.write(current)
}

// Load returns the stored pair for backend client use. Not exposed over any
// command surface.
func (v *Vault) Load() (Keys, error) {
	return v.read()
}

func (v *Vault) read() (Keys, error) {
	sealed, err := os.ReadFile(filepath.Join(v.dir, secretsFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Keys{}, nil
		}
		return Keys{}, fmt.Errorf("read secrets file: %w", err)
	}

	aead, err := v.openAEAD(false)
	if err != nil {
		return Keys{}, err
	}

	if len(sealed) < aead.NonceSize() {
		return Keys{}, errors.New("secrets file is truncated")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return Keys{}, fmt.Errorf("unseal secrets: %w", err)
	}

	var keys Keys
	if err := json.Unmarshal(plain, &keys); err != nil {
		return Keys{}, fmt.Errorf("decode secrets: %w", err)
	}
	return keys, nil
}

func (v *Vault) write(keys Keys) error {
	path := filepath.Join(v.dir, secretsFile)

	if keys.GroqAPIKey == "" && keys.GeminiAPIKey == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove secrets file: %w", err)
		}
		return nil
	}

	aead, err := v.openAEAD(true)
	if err != nil {
		return err
	}

	plain, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("encode secrets: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plain, nil)

	if err := os.MkdirAll(v.dir, 0o700); err != nil {
		return fmt.Errorf("ensure vault dir: %w", err)
	}
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return fmt.Errorf("write secrets file: %w", err)
	}
	return nil
}

// openAEAD derives the sealing cipher from the master key file, creating the
// master key first when create is true.
func (v *Vault) openAEAD(create bool) (cipher.AEAD, error) {
	master, err := v.masterKey(create)
	if err != nil {
		return nil, err
	}

	derived := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, master, nil, []byte("dicto-secrets-seal"))
	if _, err := io.ReadFull(kdf, derived); err != nil {
		return nil, fmt.Errorf("derive sealing key: %w", err)
	}

	return chacha20poly1305.NewX(derived)
}

func (v *Vault) masterKey(create bool) ([]byte, error) {
	path := filepath.Join(v.dir, masterKeyFile)

	master, err := os.ReadFile(path)
	if err == nil {
		if len(master) != 32 {
			return nil, errors.New("master key file has unexpected length")
		}
		return master, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read master key: %w", err)
	}
	if !create {
		return nil, fmt.Errorf("read master key: %w", err)
	}

	master = make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, master); err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}
	if err := os.MkdirAll(v.dir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure vault dir: %w", err)
	}
	if err := os.WriteFile(path, master, 0o600); err != nil {
		return nil, fmt.Errorf("write master key: %w", err)
	}
	return master, nil
}
