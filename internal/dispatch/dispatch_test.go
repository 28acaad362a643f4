package dispatch_test

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"hostlink/internal/crypto"
	"hostlink/internal/dispatch"
	"hostlink/internal/domain"
	"hostlink/internal/secure"
	"hostlink/internal/session"
)

type fakeServer struct {
	mu        sync.Mutex
	sessions  map[uint64]*session.Session
	records   map[string]domain.ClientRecord
	replies   []domain.Message
	datagrams []domain.Message
	evicted   []uint64
	pub       crypto.PublicKey
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		sessions: map[uint64]*session.Session{},
		records:  map[string]domain.ClientRecord{},
		pub:      crypto.PublicKey{7, 7, 7},
	}
}

func (f *fakeServer) Session(id uint64) (*session.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	return s, ok
}

func (f *fakeServer) Evict(s *session.Session, _ string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted = append(f.evicted, s.ID())
	delete(f.sessions, s.ID())
	return s.Close()
}

func (f *fakeServer) Advertised(context.Context) (domain.Endpoint, error) {
	return domain.Endpoint{Host: "127.0.0.1", Port: 4242}, nil
}

func (f *fakeServer) ReplyDatagram(_ net.Addr, m domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datagrams = append(f.datagrams, m)
	return nil
}

func (f *fakeServer) Reply(_ *session.Session, m domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, m)
	return nil
}

func (f *fakeServer) PublicKey() crypto.PublicKey { return f.pub }

func (f *fakeServer) Record(machineID string) (domain.ClientRecord, bool, error) {
	rec, ok := f.records[machineID]
	return rec, ok, nil
}

func (f *fakeServer) add(t *testing.T, id uint64) *session.Session {
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
	s := session.New(secure.New(a, kp, 0))
	s.SetID(id)
	f.sessions[id] = s
	return s
}

var udpSrc = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5555}

func perform(srv *fakeServer, req domain.Message, proto domain.Protocol, id uint64, src net.Addr) bool {
	return dispatch.New(srv, zerolog.Nop()).Perform(context.Background(), req, proto, id, src)
}

func TestPerform_InvalidIgnored(t *testing.T) {
	srv := newFakeServer()
	srv.add(t, 1)
	req := domain.NewRequest(domain.ActionDisconnect, 0, nil)
	req.Valid = false
	if perform(srv, req, domain.ProtoTCP, 1, nil) {
		t.Fatal("invalid request performed")
	}
	if len(srv.evicted) != 0 {
		t.Fatal("invalid request had side effects")
	}
}

func TestPerform_ConnectOverUDP(t *testing.T) {
	srv := newFakeServer()
	if !perform(srv, domain.NewRequest(domain.ActionConnect, 0, nil), domain.ProtoUDP, 0, udpSrc) {
		t.Fatal("connect not performed")
	}
	if len(srv.datagrams) != 1 {
		t.Fatalf("datagrams = %d, want 1", len(srv.datagrams))
	}
	ep, err := dispatch.DecodeEndpoint(srv.datagrams[0])
	if err != nil {
		t.Fatalf("DecodeEndpoint: %v", err)
	}
	if ep.Port != 4242 || ep.Host != "127.0.0.1" {
		t.Fatalf("endpoint = %v", ep)
	}
}

func TestPerform_ConnectOverTCPIsNoop(t *testing.T) {
	srv := newFakeServer()
	srv.add(t, 1)
	if perform(srv, domain.NewRequest(domain.ActionConnect, 0, nil), domain.ProtoTCP, 1, nil) {
		t.Fatal("connect performed over tcp")
	}
	if len(srv.replies)+len(srv.datagrams) != 0 {
		t.Fatal("connect over tcp produced output")
	}
}

func TestPerform_TCPOnlyOverUDPRefused(t *testing.T) {
	srv := newFakeServer()
	for _, a := range []domain.Action{
		domain.ActionDisconnect, domain.ActionRequestPublicKey,
		domain.ActionRequestEnrollmentID, domain.ActionQueryStatus,
	} {
		if perform(srv, domain.NewRequest(a, 0, nil), domain.ProtoUDP, 0, udpSrc) {
			t.Fatalf("%v performed over udp", a)
		}
	}
	if len(srv.datagrams) != 0 {
		t.Fatal("refused requests produced datagrams")
	}
}

func TestPerform_MissingSession(t *testing.T) {
	srv := newFakeServer()
	if perform(srv, domain.NewRequest(domain.ActionRequestPublicKey, 0, nil), domain.ProtoTCP, 99, nil) {
		t.Fatal("request for missing session performed")
	}
}

func TestPerform_Disconnect(t *testing.T) {
	srv := newFakeServer()
	s := srv.add(t, 3)
	if !perform(srv, domain.NewRequest(domain.ActionDisconnect, domain.FlagRespondWithStatus, nil), domain.ProtoTCP, 3, nil) {
		t.Fatal("disconnect not performed")
	}
	if s.Alive() {
		t.Fatal("session alive after disconnect")
	}
	if len(srv.evicted) != 1 || srv.evicted[0] != 3 {
		t.Fatalf("evicted = %v", srv.evicted)
	}
	if len(srv.replies) != 1 || srv.replies[0].Code != domain.CodeOK {
		t.Fatalf("replies = %v", srv.replies)
	}
}

func TestPerform_RequestPublicKey(t *testing.T) {
	srv := newFakeServer()
	srv.add(t, 1)
	if !perform(srv, domain.NewRequest(domain.ActionRequestPublicKey, 0, nil), domain.ProtoTCP, 1, nil) {
		t.Fatal("not performed")
	}
	got, err := crypto.ParsePublicKey(srv.replies[0].Payload)
	if err != nil || got != srv.pub {
		t.Fatalf("public key reply = %v %v", got, err)
	}
}

func TestPerform_EnrollmentAndStatus(t *testing.T) {
	srv := newFakeServer()
	s := srv.add(t, 1)

	perform(srv, domain.NewRequest(domain.ActionQueryStatus, 0, nil), domain.ProtoTCP, 1, nil)
	perform(srv, domain.NewRequest(domain.ActionRequestEnrollmentID, 0, nil), domain.ProtoTCP, 1, nil)
	if srv.replies[0].Code != domain.CodeNotFound || srv.replies[1].Code != domain.CodeNotFound {
		t.Fatalf("unenrolled replies = %v", srv.replies)
	}

	s.SetIdentity("host", "m-1")
	srv.records["m-1"] = domain.ClientRecord{MachineID: "m-1", EnrollmentID: "e-1"}
	perform(srv, domain.NewRequest(domain.ActionQueryStatus, 0, nil), domain.ProtoTCP, 1, nil)
	perform(srv, domain.NewRequest(domain.ActionRequestEnrollmentID, 0, nil), domain.ProtoTCP, 1, nil)
	if srv.replies[2].Code != domain.CodeOK {
		t.Fatalf("status = %v, want ok", srv.replies[2].Code)
	}
	if srv.replies[3].Code != domain.CodeOK || string(srv.replies[3].Payload) != "e-1" {
		t.Fatalf("enrollment reply = %+v", srv.replies[3])
	}
}

func TestPerform_UnknownAction(t *testing.T) {
	srv := newFakeServer()
	srv.add(t, 1)
	if perform(srv, domain.NewRequest(domain.ActionUserBase+5, 0, nil), domain.ProtoTCP, 1, nil) {
		t.Fatal("user action performed by server")
	}
	if len(srv.replies) != 0 {
		t.Fatal("unknown action produced a reply")
	}
}
