package identity_test

import (
	"errors"
	"path/filepath"
	"testing"

	"hostlink/internal/services/identity"
	"hostlink/internal/store"
)

const strong = "Correct-Horse-9-Battery"

func TestLoadOrGenerate_Ephemeral(t *testing.T) {
	svc := identity.New(nil)
	a, created, err := svc.LoadOrGenerate("")
	if err != nil || !created {
		t.Fatalf("LoadOrGenerate: created=%v err=%v", created, err)
	}
	b, _, _ := svc.LoadOrGenerate("")
	if a.Public == b.Public {
		t.Fatal("ephemeral keys repeated")
	}
}

func TestLoadOrGenerate_PersistsAcrossLoads(t *testing.T) {
	ks := store.NewKeyFileStore(filepath.Join(t.TempDir(), "server.key"))
	svc := identity.New(ks)

	first, created, err := svc.LoadOrGenerate(strong)
	if err != nil || !created {
		t.Fatalf("first: created=%v err=%v", created, err)
	}
	second, created, err := svc.LoadOrGenerate(strong)
	if err != nil || created {
		t.Fatalf("second: created=%v err=%v", created, err)
	}
	if first.Public != second.Public {
		t.Fatal("reloaded key differs")
	}
	if identity.Fingerprint(first) != identity.Fingerprint(second) {
		t.Fatal("fingerprint differs")
	}
}

func TestLoadOrGenerate_WeakPassphrase(t *testing.T) {
	ks := store.NewKeyFileStore(filepath.Join(t.TempDir(), "server.key"))
	if _, _, err := identity.New(ks).LoadOrGenerate("short"); !errors.Is(err, identity.ErrWeakPassphrase) {
		t.Fatalf("err = %v, want ErrWeakPassphrase", err)
	}
}

func TestLoadOrGenerate_MissingPassphrase(t *testing.T) {
	ks := store.NewKeyFileStore(filepath.Join(t.TempDir(), "server.key"))
	if _, _, err := identity.New(ks).LoadOrGenerate(""); !errors.Is(err, identity.ErrNoPassphrase) {
		t.Fatalf("err = %v, want ErrNoPassphrase", err)
	}
}
