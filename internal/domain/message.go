package domain

import "fmt"

// Kind tags every frame so the receiver can route it without tracking what
// the peer is expected to send next.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindRequest
	KindResponse
	KindCommand
	KindKeepAlive
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindCommand:
		return "command"
	case KindKeepAlive:
		return "keepalive"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Action identifies what a message asks for.
type Action uint32

const (
	ActionNone Action = iota
	ActionDisconnect
	ActionConnect
	ActionRequestPublicKey
	ActionRequestEnrollmentID
	ActionQueryStatus
	ActionKeepAlive
	ActionPing
)

// ActionUserBase is the first code of the operator range. Codes at or above
// it are forwarded to hosts unchanged and never interpreted by the server.
const ActionUserBase Action = 1000

var actionNames = map[Action]string{
	ActionNone:                "none",
	ActionDisconnect:          "disconnect",
	ActionConnect:             "connect",
	ActionRequestPublicKey:    "request-public-key",
	ActionRequestEnrollmentID: "request-enrollment-id",
	ActionQueryStatus:         "query-status",
	ActionKeepAlive:           "keepalive",
	ActionPing:                "ping",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	if a >= ActionUserBase {
		return fmt.Sprintf("user(%d)", uint32(a))
	}
	return fmt.Sprintf("action(%d)", uint32(a))
}

// IsUser reports whether a is an opaque operator action.
func (a Action) IsUser() bool { return a >= ActionUserBase }

// Flags is a bitmask carried next to the action.
type Flags uint32

const (
	FlagRespondWithStatus Flags = 1 << iota
	FlagIsCommand
	FlagBroadcast
)

// FlagNames maps operator tokens to flag bits.
var FlagNames = map[string]Flags{
	"RESPOND_WITH_STATUS": FlagRespondWithStatus,
	"PACKET_IS_A_COMMAND": FlagIsCommand,
	"BROADCAST":           FlagBroadcast,
}

// Has reports whether every bit of f2 is set in f.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// ResponseCode is the result carried by a response.
type ResponseCode uint16

const (
	CodeNone ResponseCode = iota
	CodeOK
	CodeError
	CodeTimeout
	CodeNotFound
	CodeUnsupported
)

func (c ResponseCode) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeError:
		return "error"
	case CodeTimeout:
		return "timeout"
	case CodeNotFound:
		return "not-found"
	case CodeUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("code(%d)", uint16(c))
	}
}

// Message is the single wire record for requests, responses, commands and
// keep-alive probes. Values are built by the constructors below and treated
// as immutable afterwards.
type Message struct {
	Kind    Kind         `msgpack:"k"`
	Action  Action       `msgpack:"a"`
	Flags   Flags        `msgpack:"f"`
	Valid   bool         `msgpack:"v"`
	Code    ResponseCode `msgpack:"c,omitempty"`
	Payload []byte       `msgpack:"p,omitempty"`
}

// NewRequest builds a host-to-server request.
func NewRequest(action Action, flags Flags, payload []byte) Message {
	return Message{Kind: KindRequest, Action: action, Flags: flags, Valid: true, Payload: payload}
}

// NewResponse builds a reply to action.
func NewResponse(action Action, code ResponseCode, payload []byte) Message {
	return Message{Kind: KindResponse, Action: action, Valid: true, Code: code, Payload: payload}
}

// NewCommand builds a server-to-host command.
func NewCommand(action Action, flags Flags, payload []byte) Message {
	return Message{Kind: KindCommand, Action: action, Flags: flags | FlagIsCommand, Valid: true, Payload: payload}
}

// KeepAliveProbe is the zero-payload liveness probe. Hosts echo it back
// unchanged.
func KeepAliveProbe() Message {
	return Message{Kind: KindKeepAlive, Action: ActionKeepAlive, Valid: true}
}

// IsKeepAliveEcho reports whether m is a well-formed probe echo.
func (m Message) IsKeepAliveEcho() bool {
	return m.Kind == KindKeepAlive && m.Action == ActionKeepAlive && m.Valid
}

// PayloadLen returns the explicit payload length.
func (m Message) PayloadLen() int { return len(m.Payload) }

// Endpoint is the TCP address handed to hosts over UDP discovery.
type Endpoint struct {
	Host string `msgpack:"host"`
	Port int    `msgpack:"port"`
}

func (e Endpoint) String() string { return fmt.Sprintf("%s:%d", e.Host, e.Port) }

// Protocol names the transport a message arrived on.
type Protocol uint8

const (
	ProtoTCP Protocol = iota + 1
	ProtoUDP
)

func (p Protocol) String() string {
	switch p {
	case ProtoTCP:
		return "tcp"
	case ProtoUDP:
		return "udp"
	default:
		return "unknown"
	}
}
