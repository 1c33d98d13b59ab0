package wallet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/99designs/keyring"
)

const keychainService = "w3market"

// Environment overrides for key custody.
const (
	// EnvPrivateKey, when set, is returned for every key lookup. Useful for
	// CI and throwaway local nodes.
	EnvPrivateKey = "W3MARKET_PRIVATE_KEY"
	// EnvKeyringPassword unlocks the encrypted file backend without a prompt.
	EnvKeyringPassword = "W3MARKET_KEYRING_PASSWORD"
)

// KeystoreBackend stores private keys by reference.
type KeystoreBackend interface {
	Store(name, hexKey string) (string, error)
	Retrieve(ref string) (string, error)
	Delete(ref string) error
}

// Keystore wraps OS keychain access.
type Keystore struct {
	ring keyring.Keyring
}

// DefaultKeystore returns a keystore backed by the OS keychain. On headless
// Linux it falls back to an encrypted file keyring under dir/keys.
func DefaultKeystore(dir string) *Keystore {
	fileDir := filepath.Join(dir, "keys")
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  fileDir,
		FilePasswordFunc:         filePassword,
	}

	// On Linux without a GUI, fall back to file-based storage.
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		// Use file backend as ultimate fallback.
		ring, _ = keyring.Open(keyring.Config{
			ServiceName:      keychainService,
			AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
			FileDir:          fileDir,
			FilePasswordFunc: filePassword,
		})
	}

	return &Keystore{ring: ring}
}

// NewKeystore wraps an already opened keyring.
func NewKeystore(ring keyring.Keyring) *Keystore {
	return &Keystore{ring: ring}
}

// Store saves a private key for a wallet name and returns a reference key.
func (k *Keystore) Store(name, hexKey string) (string, error) {
	if k.ring == nil {
		return "", fmt.Errorf("keystore not available")
	}
	ref := keychainService + "." + name
	err := k.ring.Set(keyring.Item{
		Key:   ref,
		Data:  []byte(normaliseHexKey(hexKey)),
		Label: "w3market wallet " + name,
	})
	if err != nil {
		return "", fmt.Errorf("keychain store: %w", err)
	}
	return ref, nil
}

// Retrieve fetches a private key by its reference. EnvPrivateKey wins over
// the keychain.
func (k *Keystore) Retrieve(ref string) (string, error) {
	if v := os.Getenv(EnvPrivateKey); v != "" {
		return normaliseHexKey(v), nil
	}
	if k.ring == nil {
		return "", fmt.Errorf("keystore not available")
	}
	item, err := k.ring.Get(ref)
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return string(item.Data), nil
}

// Delete removes a stored key. A missing key is not an error.
func (k *Keystore) Delete(ref string) error {
	if k.ring == nil {
		return nil
	}
	err := k.ring.Remove(ref)
	switch {
	case err == nil, errors.Is(err, keyring.ErrKeyNotFound), errors.Is(err, fs.ErrNotExist):
		// The file backend reports a missing key as a missing file.
		return nil
	default:
		return fmt.Errorf("keychain delete: %w", err)
	}
}

// InMemoryKeystore returns a keystore that stores keys in memory (for tests).
type InMemoryKeystore struct {
	data map[string]string
}

// NewInMemoryKeystore creates an in-memory keystore.
func NewInMemoryKeystore() *InMemoryKeystore {
	return &InMemoryKeystore{data: make(map[string]string)}
}

func (k *InMemoryKeystore) Store(name, hexKey string) (string, error) {
	ref := keychainService + "." + name
	k.data[ref] = normaliseHexKey(hexKey)
	return ref, nil
}

func (k *InMemoryKeystore) Retrieve(ref string) (string, error) {
	v, ok := k.data[ref]
	if !ok {
		return "", fmt.Errorf("key not found: %s", ref)
	}
	return v, nil
}

func (k *InMemoryKeystore) Delete(ref string) error {
	delete(k.data, ref)
	return nil
}

func filePassword(prompt string) (string, error) {
	if v := os.Getenv(EnvKeyringPassword); v != "" {
		return v, nil
	}
	return keyring.TerminalPrompt(prompt)
}

// normaliseHexKey trims whitespace and a 0x/0X prefix.
func normaliseHexKey(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
