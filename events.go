package anonauth

import (
	"sync"
)

// SessionEvents is a plain observer list with a last-value equality check:
// subscribers only hear about a session when its identity differs from the
// previous notification. It replaces the reactive selector machinery a UI
// binding would otherwise need.
type SessionEvents struct {
	mu        sync.Mutex
	last      *Session
	observers map[int]func(Session)
	nextID    int
}

func NewSessionEvents() *SessionEvents {
	return &SessionEvents{
		observers: map[int]func(Session){},
	}
}

// Subscribe registers an observer and returns a cancel func. A new
// subscriber immediately receives the last seen session, if any.
func (e *SessionEvents) Subscribe(fn func(Session)) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.observers[id] = fn
	last := e.last
	e.mu.Unlock()

	if last != nil {
		fn(*last)
	}

	return func() {
		e.mu.Lock()
		delete(e.observers, id)
		e.mu.Unlock()
	}
}

// Notify fans the session out to observers unless it is identical, in
// identity terms, to the last value delivered.
func (e *SessionEvents) Notify(session Session) {
	e.mu.Lock()
	if e.last != nil && sameIdentity(*e.last, session) {
		e.mu.Unlock()
		return
	}
	e.last = &session

	observers := make([]func(Session), 0, len(e.observers))
	for _, fn := range e.observers {
		observers = append(observers, fn)
	}
	e.mu.Unlock()

	for _, fn := range observers {
		fn(session)
	}
}

// Last returns the most recently delivered session.
func (e *SessionEvents) Last() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return Session{}, false
	}
	return *e.last, true
}

func sameIdentity(a, b Session) bool {
	return a.SubjectID == b.SubjectID &&
		a.SessionID == b.SessionID &&
		a.Email == b.Email
}
