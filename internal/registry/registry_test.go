package registry_test

import (
	"errors"
	"net"
	"sync"
	"testing"

	"hostlink/internal/crypto"
	"hostlink/internal/registry"
	"hostlink/internal/secure"
	"hostlink/internal/session"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return session.New(secure.New(a, kp, 0))
}

func TestInsert_ConcurrentUnique(t *testing.T) {
	const n = 64
	r := registry.New(0)
	sessions := make([]*session.Session, n)
	for i := range sessions {
		sessions[i] = newSession(t)
	}

	ids := make([]uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := r.Insert(sessions[i])
			if err != nil {
				t.Errorf("Insert: %v", err)
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, n)
	for i, id := range ids {
		if id == 0 || id >= 1<<63 {
			t.Fatalf("id %d out of range", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
		if sessions[i].ID() != id {
			t.Fatalf("session id = %d, want %d", sessions[i].ID(), id)
		}
	}
	if r.Len() != n {
		t.Fatalf("Len = %d, want %d", r.Len(), n)
	}
}

func TestInsert_RetriesCollisionAndZero(t *testing.T) {
	r := registry.New(0)
	seq := []uint64{7, 0, 7, 9}
	r.SetRand(func() (uint64, error) {
		v := seq[0]
		seq = seq[1:]
		return v, nil
	})

	a, b := newSession(t), newSession(t)
	if id, _ := r.Insert(a); id != 7 {
		t.Fatalf("first id = %d, want 7", id)
	}
	if id, _ := r.Insert(b); id != 9 {
		t.Fatalf("second id = %d, want 9", id)
	}
}

func TestRemove(t *testing.T) {
	r := registry.New(0)
	s := newSession(t)
	id, err := r.Insert(s)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	r.Remove(id)
	if _, ok := r.Lookup(id); ok {
		t.Fatal("session still present after Remove")
	}
	r.Remove(id)
}

func TestInsert_Full(t *testing.T) {
	r := registry.New(1)
	if _, err := r.Insert(newSession(t)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !r.Full() {
		t.Fatal("Full = false at limit")
	}
	if _, err := r.Insert(newSession(t)); !errors.Is(err, registry.ErrFull) {
		t.Fatalf("err = %v, want ErrFull", err)
	}
}

func TestSnapshot_Ordered(t *testing.T) {
	r := registry.New(0)
	for i := 0; i < 8; i++ {
		if _, err := r.Insert(newSession(t)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	snap := r.Snapshot()
	for i := 1; i < len(snap); i++ {
		if snap[i-1].ID() >= snap[i].ID() {
			t.Fatal("snapshot not ordered by id")
		}
	}
}
