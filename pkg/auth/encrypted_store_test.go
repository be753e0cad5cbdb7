package auth

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestEncryptedStore(t *testing.T) *EncryptedFileStore {
	t.Helper()

	t.Setenv("IGVISION_PASSPHRASE", "test-passphrase-for-unit-tests")

	store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "credentials.enc"))
	if err != nil {
		t.Fatalf("NewEncryptedFileStore failed: %v", err)
	}
	return store
}

func TestEncryptedStoreRoundTrip(t *testing.T) {
	store := newTestEncryptedStore(t)

	account := testAccount("default")
	if err := store.Store(account); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	retrieved, err := store.Retrieve("default")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if retrieved.ApifyToken != account.ApifyToken {
		t.Errorf("Unexpected token: %s", retrieved.ApifyToken)
	}
	if retrieved.VisionCredentialsFile != account.VisionCredentialsFile {
		t.Errorf("Unexpected credentials file: %s", retrieved.VisionCredentialsFile)
	}
}

func TestEncryptedStoreFileIsEncrypted(t *testing.T) {
	store := newTestEncryptedStore(t)

	account := testAccount("default")
	if err := store.Store(account); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	content, err := os.ReadFile(store.filepath)
	if err != nil {
		t.Fatalf("Failed to read store file: %v", err)
	}

	// The token must never appear in plaintext on disk
	if strings.Contains(string(content), account.ApifyToken) {
		t.Error("Token stored in plaintext")
	}

	// The envelope itself is JSON with salt and ciphertext
	var envelope struct {
		Salt      string `json:"salt"`
		Encrypted string `json:"encrypted"`
		Version   int    `json:"version"`
	}
	if err := json.Unmarshal(content, &envelope); err != nil {
		t.Fatalf("Store file is not valid JSON: %v", err)
	}
	if envelope.Salt == "" || envelope.Encrypted == "" {
		t.Error("Expected salt and encrypted payload in store file")
	}
	if envelope.Version != 1 {
		t.Errorf("Unexpected version: %d", envelope.Version)
	}

	info, err := os.Stat(store.filepath)
	if err != nil {
		t.Fatalf("Failed to stat store file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %o", info.Mode().Perm())
	}
}

func TestEncryptedStoreWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.enc")

	t.Setenv("IGVISION_PASSPHRASE", "first-passphrase")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("NewEncryptedFileStore failed: %v", err)
	}
	if err := store.Store(testAccount("default")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	t.Setenv("IGVISION_PASSPHRASE", "other-passphrase")
	other, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("NewEncryptedFileStore failed: %v", err)
	}
	if _, err := other.Retrieve("default"); err == nil {
		t.Error("Expected retrieval to fail with the wrong passphrase")
	}
}

func TestEncryptedStoreListAndDelete(t *testing.T) {
	store := newTestEncryptedStore(t)

	accounts, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("Expected empty list, got %d", len(accounts))
	}

	if err := store.Store(testAccount("work")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := store.Store(testAccount("personal")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	accounts, err = store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("Expected 2 accounts, got %d", len(accounts))
	}

	if err := store.Delete("work"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if store.Exists("work") {
		t.Error("Expected work account to be gone")
	}
	if !store.Exists("personal") {
		t.Error("Expected personal account to remain")
	}

	// Deleting the last account removes the file entirely
	if err := store.Delete("personal"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(store.filepath); !os.IsNotExist(err) {
		t.Error("Expected store file to be removed with the last account")
	}
}

func TestEncryptedStoreMissingAccount(t *testing.T) {
	store := newTestEncryptedStore(t)

	if _, err := store.Retrieve("missing"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
	if err := store.Delete("missing"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}

func TestEncryptedStoreRejectsInvalidInput(t *testing.T) {
	store := newTestEncryptedStore(t)

	if err := store.Store(nil); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for nil account, got %v", err)
	}
	if _, err := store.Retrieve(""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for empty name, got %v", err)
	}
}
