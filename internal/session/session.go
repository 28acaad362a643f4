package session

import (
	"net"
	"sync"
	"time"

	"hostlink/internal/crypto"
	"hostlink/internal/domain"
	"hostlink/internal/secure"
)

// Phase is the lifecycle position of a session.
type Phase uint8

const (
	PhaseAccepted Phase = iota
	PhaseKeyExchanged
	PhaseIdentityResolved
	PhaseStateRestored
	PhaseActive
	PhaseDisconnected
)

func (p Phase) String() string {
	switch p {
	case PhaseAccepted:
		return "accepted"
	case PhaseKeyExchanged:
		return "key-exchanged"
	case PhaseIdentityResolved:
		return "identity-resolved"
	case PhaseStateRestored:
		return "state-restored"
	case PhaseActive:
		return "active"
	case PhaseDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ReaderState tells the receive loop what a keep-alive frame means.
type ReaderState uint8

const (
	AwaitingRequest ReaderState = iota
	AwaitingKeepAliveEcho
)

// Session is one connected host.
type Session struct {
	ch   *secure.Channel
	addr net.Addr

	mu           sync.Mutex
	id           uint64
	phase        Phase
	reader       ReaderState
	alive        bool
	hostName     string
	machineID    string
	enrollmentID string
	firstSeen    time.Time
	lastSeen     time.Time
	echo         chan bool
	response     map[domain.Action][]chan domain.Message

	closeOnce sync.Once
	done      chan struct{}
}

// New creates an accepted, alive session around ch.
func New(ch *secure.Channel) *Session {
	now := time.Now().UTC()
	return &Session{
		ch:        ch,
		addr:      ch.Conn().RemoteAddr(),
		alive:     true,
		firstSeen: now,
		lastSeen:  now,
		done:      make(chan struct{}),
	}
}

// Channel returns the secure channel of the session.
func (s *Session) Channel() *secure.Channel { return s.ch }

// Addr returns the peer address.
func (s *Session) Addr() net.Addr { return s.addr }

// ID returns the registry identifier, zero before insertion.
func (s *Session) ID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// SetID is called by the registry while inserting.
func (s *Session) SetID(id uint64) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

// Phase returns the lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Advance moves the session forward. A disconnected session stays
// disconnected.
func (s *Session) Advance(p Phase) {
	s.mu.Lock()
	if s.phase != PhaseDisconnected {
		s.phase = p
	}
	s.mu.Unlock()
}

// Alive reports whether the connection is still considered usable.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// PeerKey returns the host's public key once exchanged.
func (s *Session) PeerKey() (crypto.PublicKey, bool) { return s.ch.PeerKey() }

// Identity returns host name and machine ID; either may be empty.
func (s *Session) Identity() (hostName, machineID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostName, s.machineID
}

// SetIdentity records handshake results. Empty values leave fields unset.
func (s *Session) SetIdentity(hostName, machineID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hostName != "" {
		s.hostName = hostName
	}
	if machineID != "" {
		s.machineID = machineID
	}
}

// EnrollmentID returns the persisted enrollment ID, if any.
func (s *Session) EnrollmentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enrollmentID
}

// SetEnrollmentID assigns an enrollment ID when none is set yet.
func (s *Session) SetEnrollmentID(id string) {
	s.mu.Lock()
	if s.enrollmentID == "" {
		s.enrollmentID = id
	}
	s.mu.Unlock()
}

// Restore merges a persisted record. Live handshake values win; the record
// fills what the handshake left empty and carries enrollment history.
func (s *Session) Restore(rec domain.ClientRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hostName == "" {
		s.hostName = rec.DisplayName
	}
	if s.machineID == "" {
		s.machineID = rec.MachineID
	}
	if rec.EnrollmentID != "" {
		s.enrollmentID = rec.EnrollmentID
	}
	if !rec.FirstSeen.IsZero() {
		s.firstSeen = rec.FirstSeen
	}
}

// Touch records inbound activity.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now().UTC()
	s.mu.Unlock()
}

// LastSeen returns the time of the last authenticated inbound frame.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Record snapshots the session for persistence.
func (s *Session) Record() domain.ClientRecord {
	var pub string
	if key, ok := s.ch.PeerKey(); ok {
		pub = crypto.B64(key.Slice())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ClientRecord{
		DisplayName:  s.hostName,
		MachineID:    s.machineID,
		SessionID:    s.id,
		EnrollmentID: s.enrollmentID,
		FirstSeen:    s.firstSeen,
		LastSeen:     s.lastSeen,
		Keys:         domain.RecordKeys{PublicKey: pub},
	}
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close marks the session dead and closes its socket. It reports true only
// for the call that actually closed it.
func (s *Session) Close() bool {
	closed := false
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.alive = false
		s.phase = PhaseDisconnected
		s.reader = AwaitingRequest
		s.echo = nil
		s.response = nil
		s.mu.Unlock()

		_ = s.ch.Close()
		close(s.done)
		closed = true
	})
	return closed
}
