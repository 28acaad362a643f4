package dispatch

import (
	"hostlink/internal/codec"
	"hostlink/internal/domain"
)

// connectResponse carries ep msgpack-encoded in the payload.
func connectResponse(ep domain.Endpoint) domain.Message {
	b, err := codec.Marshal(ep)
	if err != nil {
		return domain.NewResponse(domain.ActionConnect, domain.CodeError, nil)
	}
	return domain.NewResponse(domain.ActionConnect, domain.CodeOK, b)
}

// DecodeEndpoint extracts the endpoint from a Connect response.
func DecodeEndpoint(m domain.Message) (domain.Endpoint, error) {
	var ep domain.Endpoint
	if m.Kind != domain.KindResponse || m.Action != domain.ActionConnect || m.Code != domain.CodeOK {
		return ep, codec.ErrMalformed
	}
	if err := codec.Unmarshal(m.Payload, &ep); err != nil {
		return ep, err
	}
	return ep, nil
}
