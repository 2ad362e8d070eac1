package workflow

import (
	"log/slog"

	"github.com/google/uuid"
)

const subscriberBuffer = 32

// Subscribe returns a channel of state transitions and a function that
// unsubscribes and closes it. Slow subscribers miss events rather than
// stalling the workflow.
func (s *Session) Subscribe() (<-chan Transition, func()) {
	ch := make(chan Transition, subscriberBuffer)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var done bool
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if done {
			return
		}
		done = true
		delete(s.subscribers, ch)
		close(ch)
	}
	return ch, cancel
}

// move advances the music state machine and publishes the transition.
func (s *Session) move(id uuid.UUID, kind Kind, to State, err error) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()
	if from == to {
		return
	}
	s.publish(id, kind, from, to, err)
}

func (s *Session) publish(id uuid.UUID, kind Kind, from, to State, err error) {
	t := Transition{
		RequestID: id,
		AccountID: s.accountID,
		Kind:      kind,
		From:      from,
		To:        to,
		At:        s.cfg.Now(),
	}
	if err != nil {
		t.Error = err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- t:
		default:
			slog.Debug("transition dropped for slow subscriber", "account", s.accountID, "to", to)
		}
	}
}
