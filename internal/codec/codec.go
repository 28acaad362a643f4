package codec

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"hostlink/internal/domain"
)

// ErrMalformed is returned when bytes do not decode into a usable message.
var ErrMalformed = errors.New("codec: malformed message")

// Marshal encodes v.
func Marshal(v any) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal %T: %w", v, err)
	}
	return b, nil
}

// Unmarshal decodes b into v.
func Unmarshal(b []byte, v any) error {
	if err := msgpack.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// DecodeMessage decodes b and rejects messages with an unknown kind.
func DecodeMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	if err := Unmarshal(b, &m); err != nil {
		return domain.Message{}, err
	}
	if m.Kind == domain.KindInvalid || m.Kind > domain.KindKeepAlive {
		return domain.Message{}, fmt.Errorf("%w: %s", ErrMalformed, m.Kind)
	}
	return m, nil
}
