package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	keyringService      = "cognio-mcp"
	keyringUser         = "api_key"
	credentialsFileName = ".credentials"
)

var (
	// fallbackMode indicates if we're using file-based fallback (headless systems)
	fallbackMode    bool
	fallbackModeMu  sync.RWMutex
	fallbackChecked bool
)

// checkKeyringAvailable tests if system keyring is available
func checkKeyringAvailable() bool {
	fallbackModeMu.Lock()
	defer fallbackModeMu.Unlock()

	if fallbackChecked {
		return !fallbackMode
	}

	// Try to access keyring with a test operation
	testKey := "cognio-keyring-test"
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

// isFallbackMode returns true if using file-based fallback
func isFallbackMode() bool {
	fallbackModeMu.RLock()
	defer fallbackModeMu.RUnlock()
	return fallbackMode
}

// resetKeyringProbe clears the cached availability result. Test helper.
func resetKeyringProbe() {
	fallbackModeMu.Lock()
	defer fallbackModeMu.Unlock()
	fallbackMode = false
	fallbackChecked = false
}

// credentialsPath returns the path for fallback key storage
func credentialsPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, credentialsFileName), nil
}

// StoreAPIKey stores the backend API key in the system keyring or fallback file
func StoreAPIKey(key string) error {
	if checkKeyringAvailable() {
		if err := keyring.Set(keyringService, keyringUser, key); err != nil {
			return fmt.Errorf("failed to store key in keyring: %w", err)
		}
		return nil
	}

	// Fallback to file-based storage
	return storeFallbackKey(key)
}

// RetrieveAPIKey retrieves the API key from system keyring or fallback file
func RetrieveAPIKey() (string, error) {
	if !isFallbackMode() && checkKeyringAvailable() {
		key, err := keyring.Get(keyringService, keyringUser)
		if err != nil {
			return "", fmt.Errorf("key not found in keyring: %w", err)
		}
		return key, nil
	}

	key, err := retrieveFallbackKey()
	if err != nil {
		return "", fmt.Errorf("key not found in fallback: %w", err)
	}
	return key, nil
}

// DeleteAPIKey removes the API key from system keyring and fallback file
func DeleteAPIKey() error {
	var keyringErr, fallbackErr error

	// Try to delete from keyring (if available)
	if !isFallbackMode() {
		keyringErr = keyring.Delete(keyringService, keyringUser)
	}

	// Also try to delete fallback file (in case it exists)
	fallbackErr = deleteFallbackKey()

	if keyringErr != nil && fallbackErr != nil {
		return fmt.Errorf("failed to delete key from keyring and fallback")
	}

	return nil
}

// HasAPIKey checks if an API key is stored anywhere
func HasAPIKey() bool {
	// Check keyring first
	if !isFallbackMode() && checkKeyringAvailable() {
		if _, err := keyring.Get(keyringService, keyringUser); err == nil {
			return true
		}
	}

	// Check fallback file
	path, err := credentialsPath()
	if err != nil {
		return false
	}

	_, err = os.Stat(path)
	return err == nil
}

// StorageMode returns a string describing current key storage mode
func StorageMode() string {
	if isFallbackMode() {
		return "file"
	}
	if checkKeyringAvailable() {
		return "keyring"
	}
	return "file"
}

// Fallback file operations for headless systems

func storeFallbackKey(key string) error {
	path, err := credentialsPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write key with restrictive permissions (owner read/write only)
	if err := os.WriteFile(path, []byte(key), 0600); err != nil {
		return fmt.Errorf("failed to write fallback key: %w", err)
	}

	return nil
}

func retrieveFallbackKey() (string, error) {
	path, err := credentialsPath()
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func deleteFallbackKey() error {
	path, err := credentialsPath()
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
