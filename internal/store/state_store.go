package store

import (
	"fmt"
	"sync"

	"hostlink/internal/domain"
)

// StateFileStore persists domain.State as one JSON document.
type StateFileStore struct {
	path string
	mu   sync.Mutex
}

// NewStateFileStore returns a store backed by path. Nothing touches the
// disk until the first call.
func NewStateFileStore(path string) *StateFileStore {
	return &StateFileStore{path: path}
}

// Load reads the state file, creating it empty when missing. An empty file
// yields an empty State.
func (s *StateFileStore) Load() (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *StateFileStore) load() (domain.State, error) {
	st := domain.State{ClientList: map[string]domain.ClientRecord{}}
	if err := ensureFile(s.path, 0o600); err != nil {
		return st, fmt.Errorf("store: create state file: %w", err)
	}
	if _, err := readJSON(s.path, &st); err != nil {
		return domain.State{ClientList: map[string]domain.ClientRecord{}}, fmt.Errorf("store: read state file: %w", err)
	}
	if st.ClientList == nil {
		st.ClientList = map[string]domain.ClientRecord{}
	}
	return st, nil
}

// Lookup returns the record filed under machineID.
func (s *StateFileStore) Lookup(machineID string) (domain.ClientRecord, bool, error) {
	if machineID == "" {
		return domain.ClientRecord{}, false, nil
	}
	st, err := s.Load()
	if err != nil {
		return domain.ClientRecord{}, false, err
	}
	rec, ok := st.ClientList[machineID]
	return rec, ok, nil
}

// Save writes info and merges records over the existing client list.
// Records without a machine ID are skipped. An unreadable existing file is
// replaced.
func (s *StateFileStore) Save(info domain.ServerInfo, records []domain.ClientRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		st = domain.State{ClientList: map[string]domain.ClientRecord{}}
	}
	st.ServerInfo = info

	for _, rec := range records {
		if rec.MachineID == "" {
			continue
		}
		st.ClientList[rec.MachineID] = merge(st.ClientList[rec.MachineID], rec)
	}
	return writeJSON(s.path, st, 0o600)
}

// merge overlays cur on prev, keeping history fields cur does not carry.
func merge(prev, cur domain.ClientRecord) domain.ClientRecord {
	if cur.DisplayName == "" {
		cur.DisplayName = prev.DisplayName
	}
	if cur.EnrollmentID == "" {
		cur.EnrollmentID = prev.EnrollmentID
	}
	if !prev.FirstSeen.IsZero() && (cur.FirstSeen.IsZero() || prev.FirstSeen.Before(cur.FirstSeen)) {
		cur.FirstSeen = prev.FirstSeen
	}
	if cur.LastSeen.Before(prev.LastSeen) {
		cur.LastSeen = prev.LastSeen
	}
	if cur.Keys.PublicKey == "" {
		cur.Keys.PublicKey = prev.Keys.PublicKey
	}
	return cur
}

var _ domain.StateStore = (*StateFileStore)(nil)
