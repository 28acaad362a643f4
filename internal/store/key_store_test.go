package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"hostlink/internal/domain"
	"hostlink/internal/store"
)

func TestKey_SaveLoad_OK(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.key")
	var ks domain.KeyStore = store.NewFastKeyFileStore(path)

	priv := [32]byte{1, 2, 3, 4}
	if err := ks.SaveKey("pass", priv); err != nil {
		t.Fatalf("save key: %v", err)
	}
	got, ok, err := ks.LoadKey("pass")
	if err != nil || !ok {
		t.Fatalf("load key: ok=%v err=%v", ok, err)
	}
	if got != priv {
		t.Fatal("mismatch after load")
	}
}

func TestKey_Missing(t *testing.T) {
	ks := store.NewFastKeyFileStore(filepath.Join(t.TempDir(), "server.key"))
	_, ok, err := ks.LoadKey("pass")
	if err != nil || ok {
		t.Fatalf("load missing: ok=%v err=%v", ok, err)
	}
}

func TestKey_WrongPassphrase_Fails(t *testing.T) {
	ks := store.NewFastKeyFileStore(filepath.Join(t.TempDir(), "server.key"))
	if err := ks.SaveKey("correct", [32]byte{9}); err != nil {
		t.Fatalf("save key: %v", err)
	}
	if _, _, err := ks.LoadKey("wrong"); !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("err = %v, want ErrWrongPassphrase", err)
	}
}

func TestKey_TamperedFile_Fails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.key")
	ks := store.NewFastKeyFileStore(path)
	if err := ks.SaveKey("pass", [32]byte{5}); err != nil {
		t.Fatalf("save key: %v", err)
	}
	if err := os.WriteFile(path, []byte(`{"v":99}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ks.LoadKey("pass"); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}
