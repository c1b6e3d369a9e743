package credential

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "access_token")

	if err := os.WriteFile(tokenPath, []byte("tok-one\n"), 0600); err != nil {
		t.Fatalf("Failed to write token file: %v", err)
	}

	fs, err := NewFileSource(tokenPath)
	if err != nil {
		t.Fatalf("NewFileSource() failed: %v", err)
	}

	if fs.Token() != "tok-one" {
		t.Errorf("Expected initial token 'tok-one', got '%s'", fs.Token())
	}

	// Shorten the debounce so the test doesn't dawdle.
	fs.debounceDelay = 20 * time.Millisecond

	if err := fs.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer fs.Stop()

	if err := os.WriteFile(tokenPath, []byte("tok-two"), 0600); err != nil {
		t.Fatalf("Failed to rewrite token file: %v", err)
	}

	// The reload is debounced; poll for the new value.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if fs.Token() == "tok-two" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Token was not reloaded after rewrite, still '%s'", fs.Token())
}

func TestFileSourceEmptyFile(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "access_token")
	if err := os.WriteFile(tokenPath, []byte("   \n"), 0600); err != nil {
		t.Fatalf("Failed to write token file: %v", err)
	}

	if _, err := NewFileSource(tokenPath); err == nil {
		t.Fatal("Expected an error for an empty token file, got nil")
	}
}
