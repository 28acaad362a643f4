package console

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"hostlink/internal/domain"
)

var (
	// ErrUnknownFlag is returned for tokens matching no flag name.
	ErrUnknownFlag = errors.New("console: unknown flag")
	// ErrAmbiguousFlag is returned for tokens matching more than one flag name.
	ErrAmbiguousFlag = errors.New("console: ambiguous flag")
	// ErrBadAction is returned for actions the console cannot send.
	ErrBadAction = errors.New("console: bad action")
)

// ParseFlags ORs together the flags named by tokens.
func ParseFlags(tokens []string) (domain.Flags, error) {
	var out domain.Flags
	for _, tok := range tokens {
		f, err := parseFlag(tok)
		if err != nil {
			return 0, err
		}
		out |= f
	}
	return out, nil
}

func parseFlag(tok string) (domain.Flags, error) {
	want := strings.ToUpper(tok)
	if f, ok := domain.FlagNames[want]; ok {
		return f, nil
	}
	var hits []string
	for name := range domain.FlagNames {
		if strings.Contains(name, want) {
			hits = append(hits, name)
		}
	}
	switch len(hits) {
	case 0:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFlag, tok)
	case 1:
		return domain.FlagNames[hits[0]], nil
	default:
		sort.Strings(hits)
		return 0, fmt.Errorf("%w: %s matches %s", ErrAmbiguousFlag, tok, strings.Join(hits, ", "))
	}
}

// ParseAction accepts "ping", "disconnect" or a user action code.
func ParseAction(tok string) (domain.Action, error) {
	switch strings.ToLower(tok) {
	case "ping":
		return domain.ActionPing, nil
	case "disconnect":
		return domain.ActionDisconnect, nil
	}
	n, err := strconv.ParseUint(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrBadAction, tok)
	}
	a := domain.Action(n)
	if !a.IsUser() {
		return 0, fmt.Errorf("%w: %d is below %d", ErrBadAction, n, domain.ActionUserBase)
	}
	return a, nil
}

// parseID reads a session ID; zero means every session.
func parseID(tok string) (uint64, error) {
	id, err := strconv.ParseUint(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("console: bad session id %q", tok)
	}
	return id, nil
}

// splitPayload separates "a b -- rest of line" into fields and payload.
func splitPayload(line string) ([]string, []byte) {
	head, payload, found := strings.Cut(line, " -- ")
	if !found {
		if p, ok := strings.CutSuffix(line, " --"); ok {
			return strings.Fields(p), nil
		}
		return strings.Fields(line), nil
	}
	return strings.Fields(head), []byte(payload)
}
