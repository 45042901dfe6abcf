package hostkey

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrGenerate_GeneratesAndPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host_key")

	signer, err := LoadOrGenerate(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signer == nil {
		t.Fatal("expected a signer")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected key file to be written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected mode 0600, got %o", info.Mode().Perm())
	}
}

func TestLoadOrGenerate_ReusesExistingKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host_key")

	first, err := LoadOrGenerate(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := LoadOrGenerate(path)
	if err != nil {
		t.Fatalf("unexpected error on reload: %v", err)
	}

	if string(first.PublicKey().Marshal()) != string(second.PublicKey().Marshal()) {
		t.Error("expected the same key to be reloaded, got a different one")
	}
}
