package session

import "hostlink/internal/domain"

// Reader returns the current reader state.
func (s *Session) Reader() ReaderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader
}

// BeginKeepAlive switches the reader to AwaitingKeepAliveEcho and returns
// the channel the echo outcome will be delivered on.
func (s *Session) BeginKeepAlive() <-chan bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan bool, 1)
	s.echo = ch
	s.reader = AwaitingKeepAliveEcho
	return ch
}

// EndKeepAlive returns the reader to AwaitingRequest.
func (s *Session) EndKeepAlive() {
	s.mu.Lock()
	s.echo = nil
	s.reader = AwaitingRequest
	s.mu.Unlock()
}

// DeliverEcho hands a keep-alive frame to the waiting monitor. It returns
// false when no probe is outstanding; the frame is then stale.
func (s *Session) DeliverEcho(m domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader != AwaitingKeepAliveEcho || s.echo == nil {
		return false
	}
	s.echo <- m.IsKeepAliveEcho()
	s.echo = nil
	s.reader = AwaitingRequest
	return true
}

// ExpectResponse registers a one-shot slot for the next response to
// action. Slots for the same action are answered in registration order.
func (s *Session) ExpectResponse(action domain.Action) <-chan domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan domain.Message, 1)
	if s.response == nil {
		s.response = make(map[domain.Action][]chan domain.Message)
	}
	s.response[action] = append(s.response[action], ch)
	return ch
}

// CancelResponse drops a slot returned by ExpectResponse if it is still
// waiting.
func (s *Session) CancelResponse(action domain.Action, slot <-chan domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.response[action]
	for i, ch := range q {
		if (<-chan domain.Message)(ch) == slot {
			q = append(q[:i:i], q[i+1:]...)
			break
		}
	}
	if len(q) == 0 {
		delete(s.response, action)
	} else {
		s.response[action] = q
	}
}

// DeliverResponse hands a response to the oldest waiter for its action. It
// returns false when nobody waits for that action.
func (s *Session) DeliverResponse(m domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.response[m.Action]
	if len(q) == 0 {
		return false
	}
	q[0] <- m
	if len(q) == 1 {
		delete(s.response, m.Action)
	} else {
		s.response[m.Action] = q[1:]
	}
	return true
}
