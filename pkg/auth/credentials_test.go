package auth

import (
	"errors"
	"testing"
	"time"
)

func testAccount(name string) *Account {
	return &Account{
		Name:                  name,
		ApifyToken:            "apify_api_test_token_1234567890",
		VisionCredentialsFile: "/tmp/creds.json",
	}
}

func TestManagerStoreAndRetrieve(t *testing.T) {
	manager, mockStore := NewMockManager()

	account := testAccount("default")
	if err := manager.Store(account); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if mockStore.Count() != 1 {
		t.Errorf("Expected 1 stored account, got %d", mockStore.Count())
	}
	if account.LastModified.IsZero() {
		t.Error("Expected Store to set LastModified")
	}

	retrieved, err := manager.Retrieve("default")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if retrieved.ApifyToken != account.ApifyToken {
		t.Errorf("Unexpected token: %s", retrieved.ApifyToken)
	}
	if retrieved.VisionCredentialsFile != "/tmp/creds.json" {
		t.Errorf("Unexpected credentials file: %s", retrieved.VisionCredentialsFile)
	}
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	if err := manager.Store(&Account{ApifyToken: "token"}); err == nil {
		t.Error("Expected error for account without name")
	}
	if err := manager.Store(&Account{Name: "default"}); err == nil {
		t.Error("Expected error for account without token")
	}
}

func TestManagerRetrieveMissing(t *testing.T) {
	manager, _ := NewMockManager()

	if _, err := manager.Retrieve("missing"); err == nil {
		t.Error("Expected error for unknown account")
	}
}

func TestManagerList(t *testing.T) {
	manager, _ := NewMockManager()

	if err := manager.Store(testAccount("work")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := manager.Store(testAccount("personal")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	accounts, err := manager.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("Expected 2 accounts, got %d", len(accounts))
	}

	names := make(map[string]bool)
	for _, account := range accounts {
		names[account.Name] = true
	}
	if !names["work"] || !names["personal"] {
		t.Errorf("Unexpected account names: %v", names)
	}
}

func TestManagerDelete(t *testing.T) {
	manager, mockStore := NewMockManager()

	if err := manager.Store(testAccount("default")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if err := manager.Delete("default"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected empty store after delete, got %d", mockStore.Count())
	}

	if err := manager.Delete("default"); err == nil {
		t.Error("Expected error deleting missing account")
	}
}

func TestManagerDeleteAll(t *testing.T) {
	manager, mockStore := NewMockManager()

	for _, name := range []string{"a", "b", "c"} {
		if err := manager.Store(testAccount(name)); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}

	if err := manager.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected empty store, got %d accounts", mockStore.Count())
	}
}

func TestManagerFallbackOnStoreError(t *testing.T) {
	primary := NewMockStore()
	primary.StoreError = errors.New("keychain locked")
	secondary := NewMockStore()

	manager := NewMockManagerWithStores(primary, secondary)

	if err := manager.Store(testAccount("default")); err != nil {
		t.Fatalf("Store should fall back to the next store: %v", err)
	}
	if primary.Count() != 0 {
		t.Error("Primary store should be empty")
	}
	if secondary.Count() != 1 {
		t.Errorf("Expected account in secondary store, got %d", secondary.Count())
	}
}

func TestManagerRetrieveAcrossStores(t *testing.T) {
	primary := NewMockStore()
	secondary := NewMockStore()
	if err := secondary.Store(testAccount("default")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	manager := NewMockManagerWithStores(primary, secondary)

	account, err := manager.Retrieve("default")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if account.Name != "default" {
		t.Errorf("Unexpected account: %s", account.Name)
	}
}

func TestManagerListMergesNewestVersion(t *testing.T) {
	older := testAccount("default")
	older.ApifyToken = "apify_api_old_token_1234567890"
	older.LastModified = time.Now().Add(-time.Hour)

	newer := testAccount("default")
	newer.ApifyToken = "apify_api_new_token_1234567890"
	newer.LastModified = time.Now()

	first := NewMockStore()
	if err := first.Store(older); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	second := NewMockStore()
	if err := second.Store(newer); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	manager := NewMockManagerWithStores(first, second)

	accounts, err := manager.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("Expected 1 merged account, got %d", len(accounts))
	}
	if accounts[0].ApifyToken != newer.ApifyToken {
		t.Error("Expected the most recently modified version to win")
	}
}

func TestRetrieveDefaultFromEnvironment(t *testing.T) {
	t.Setenv("IGVISION_APIFY_TOKEN", "apify_api_env_token_1234567890")
	t.Setenv("IGVISION_VISION_CREDENTIALS", "/tmp/env-creds.json")

	mockStore := NewMockStore()
	manager := NewMockManagerWithStores(mockStore, NewEnvironmentStore())

	account, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatalf("RetrieveDefault failed: %v", err)
	}
	if account.ApifyToken != "apify_api_env_token_1234567890" {
		t.Errorf("Expected environment token, got %s", account.ApifyToken)
	}
	if account.VisionCredentialsFile != "/tmp/env-creds.json" {
		t.Errorf("Unexpected credentials file: %s", account.VisionCredentialsFile)
	}
	if account.Name != "default" {
		t.Errorf("Expected default account name, got %s", account.Name)
	}
}

func TestRetrieveDefaultFallsBackToStored(t *testing.T) {
	t.Setenv("IGVISION_APIFY_TOKEN", "")

	mockStore := NewMockStore()
	if err := mockStore.Store(testAccount("work")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	manager := NewMockManagerWithStores(mockStore, NewEnvironmentStore())

	account, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatalf("RetrieveDefault failed: %v", err)
	}
	if account.Name != "work" {
		t.Errorf("Expected stored account, got %s", account.Name)
	}
}

func TestRetrieveDefaultNoCredentials(t *testing.T) {
	t.Setenv("IGVISION_APIFY_TOKEN", "")

	manager := NewMockManagerWithStores(NewMockStore(), NewEnvironmentStore())
	if _, err := manager.RetrieveDefault(); err == nil {
		t.Error("Expected error with no credentials anywhere")
	}
}

func TestEnvironmentStoreIsReadOnly(t *testing.T) {
	store := NewEnvironmentStore()

	if err := store.Store(testAccount("default")); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable from Store, got %v", err)
	}
	if err := store.Delete("default"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable from Delete, got %v", err)
	}
}

func TestEnvironmentStoreGoogleCredentialsFallback(t *testing.T) {
	t.Setenv("IGVISION_APIFY_TOKEN", "apify_api_env_token_1234567890")
	t.Setenv("IGVISION_VISION_CREDENTIALS", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/etc/gcloud/key.json")

	store := NewEnvironmentStore()
	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if account.VisionCredentialsFile != "/etc/gcloud/key.json" {
		t.Errorf("Expected Google credentials fallback, got %s", account.VisionCredentialsFile)
	}
}

func TestSanitizeAccount(t *testing.T) {
	account := &Account{
		Name:                  "default",
		ApifyToken:            "apify_api_abcdefghijklmnop",
		VisionCredentialsFile: "/tmp/creds.json",
	}

	sanitized := SanitizeAccount(account)
	if sanitized.ApifyToken != "apif...mnop" {
		t.Errorf("Unexpected masked token: %s", sanitized.ApifyToken)
	}
	if sanitized.Name != "default" {
		t.Errorf("Name should not be masked: %s", sanitized.Name)
	}
	if sanitized.VisionCredentialsFile != "/tmp/creds.json" {
		t.Errorf("Credentials path should not be masked: %s", sanitized.VisionCredentialsFile)
	}

	// The original account stays untouched
	if account.ApifyToken != "apify_api_abcdefghijklmnop" {
		t.Error("SanitizeAccount must not modify the original")
	}
}

func TestSanitizeAccountShortToken(t *testing.T) {
	sanitized := SanitizeAccount(&Account{Name: "x", ApifyToken: "short"})
	if sanitized.ApifyToken != "********" {
		t.Errorf("Short tokens should be fully masked, got %s", sanitized.ApifyToken)
	}

	if SanitizeAccount(nil) != nil {
		t.Error("Expected nil for nil account")
	}
}

func TestMockStoreErrorInjection(t *testing.T) {
	manager, mockStore := NewMockManager()
	mockStore.RetrieveError = errors.New("backend down")

	if err := manager.Store(testAccount("default")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if _, err := manager.Retrieve("default"); err == nil {
		t.Error("Expected retrieve to fail when the store errors")
	}
}
