package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "querypilot"
	keyringUser    = "access-token"
)

var (
	// fallbackMode indicates if we're using file-based fallback (headless systems)
	fallbackMode    bool
	fallbackModeMu  sync.RWMutex
	fallbackChecked bool
)

// checkKeyringAvailable tests if the system keyring is available
func checkKeyringAvailable() bool {
	fallbackModeMu.Lock()
	defer fallbackModeMu.Unlock()

	if fallbackChecked {
		return !fallbackMode
	}

	testKey := "querypilot-keyring-test"
	err := keyring.Set(keyringService, testKey, "test")
	if err != nil {
		fallbackMode = true
		fallbackChecked = true
		return false
	}

	// Clean up test key
	_ = keyring.Delete(keyringService, testKey)
	fallbackChecked = true
	return true
}

// getFallbackPath returns the path for fallback token storage
func getFallbackPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".querypilot", ".token"), nil
}

// StoreToken stores the access token in the system keyring, falling back to
// a mode-0600 file on headless systems without a keyring daemon.
func StoreToken(token string) error {
	if checkKeyringAvailable() {
		return keyring.Set(keyringService, keyringUser, token)
	}

	path, err := getFallbackPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	return os.WriteFile(path, []byte(token), 0600)
}

// LoadToken returns the stored access token, or empty string if none is stored.
func LoadToken() (string, error) {
	if checkKeyringAvailable() {
		token, err := keyring.Get(keyringService, keyringUser)
		if err == keyring.ErrNotFound {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return token, nil
	}

	path, err := getFallbackPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ClearToken removes the stored token from keyring and fallback file.
func ClearToken() error {
	if checkKeyringAvailable() {
		if err := keyring.Delete(keyringService, keyringUser); err != nil && err != keyring.ErrNotFound {
			return err
		}
	}

	path, err := getFallbackPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
