package store_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hostlink/internal/domain"
	"hostlink/internal/store"
)

func TestState_LoadCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "server_state.json")
	var ss domain.StateStore = store.NewStateFileStore(path)

	st, err := ss.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(st.ClientList) != 0 {
		t.Fatalf("client list = %v, want empty", st.ClientList)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("state file not created: %v", err)
	}
	if fi.Size() != 0 {
		t.Fatalf("new state file size = %d, want 0", fi.Size())
	}
}

func TestState_SaveMergesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server_state.json")
	ss := store.NewStateFileStore(path)
	first := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	info := domain.ServerInfo{Connections: 1, MaxConnections: 100, TCPPort: 9000, UDPPort: 9001}
	if err := ss.Save(info, []domain.ClientRecord{
		{DisplayName: "alpha", MachineID: "m-a", SessionID: 11, EnrollmentID: "e-a", FirstSeen: first},
		{DisplayName: "beta", MachineID: "m-b", SessionID: 12},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	info.Connections = 1
	if err := ss.Save(info, []domain.ClientRecord{
		{DisplayName: "alpha", MachineID: "m-a", SessionID: 21, FirstSeen: time.Now().UTC()},
		{DisplayName: "nameless"},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	st, err := ss.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(st.ClientList) != 2 {
		t.Fatalf("client list has %d entries, want 2", len(st.ClientList))
	}
	a := st.ClientList["m-a"]
	if a.SessionID != 21 {
		t.Fatalf("session id = %d, want 21", a.SessionID)
	}
	if a.EnrollmentID != "e-a" {
		t.Fatalf("enrollment id = %q, want preserved e-a", a.EnrollmentID)
	}
	if !a.FirstSeen.Equal(first) {
		t.Fatalf("first seen = %v, want %v", a.FirstSeen, first)
	}
	if _, ok := st.ClientList["m-b"]; !ok {
		t.Fatal("record for m-b dropped by merge")
	}
	if st.ServerInfo.TCPPort != 9000 {
		t.Fatalf("server info = %+v", st.ServerInfo)
	}

	rec, ok, err := ss.Lookup("m-b")
	if err != nil || !ok || rec.DisplayName != "beta" {
		t.Fatalf("lookup = %+v %v %v", rec, ok, err)
	}
	if _, ok, _ := ss.Lookup(""); ok {
		t.Fatal("lookup of empty machine id succeeded")
	}
}

func TestState_CorruptFileReportsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	ss := store.NewStateFileStore(path)
	st, err := ss.Load()
	if err == nil {
		t.Fatal("expected error for corrupt state file")
	}
	if st.ClientList == nil {
		t.Fatal("corrupt load returned nil client list")
	}

	if err := ss.Save(domain.ServerInfo{}, []domain.ClientRecord{{MachineID: "m"}}); err != nil {
		t.Fatalf("save over corrupt file: %v", err)
	}
	if _, ok, err := ss.Lookup("m"); err != nil || !ok {
		t.Fatalf("lookup after rewrite: %v %v", ok, err)
	}
}

func TestState_FileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server_state.json")
	ss := store.NewStateFileStore(path)
	if err := ss.Save(domain.ServerInfo{}, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", fi.Mode().Perm())
	}
}
