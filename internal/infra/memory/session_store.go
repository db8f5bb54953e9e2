package memory

import (
	"context"
	"errors"
	"sync"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository,
// suitable for tests and single-process deployments. Rows are stored as
// values and cloned on every read and write so callers never alias the
// stored state.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]domain.Session
	byCode      map[string]string
	subscribers map[string]map[chan domain.SessionEvent]struct{}
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]domain.Session),
		byCode:      make(map[string]string),
		subscribers: make(map[string]map[chan domain.SessionEvent]struct{}),
	}
}

func (s *SessionStore) Create(_ context.Context, session domain.Session) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.Version = 1
	s.sessions[session.ID] = session.Clone()
	s.byCode[session.RoomCode] = session.ID
	return session, nil
}

func (s *SessionStore) Get(_ context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrRoomNotFound
	}
	return session.Clone(), nil
}

func (s *SessionStore) GetByRoomCode(_ context.Context, roomCode string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[roomCode]
	if !ok {
		return domain.Session{}, domain.ErrRoomNotFound
	}
	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrRoomNotFound
	}
	return session.Clone(), nil
}

// Update applies mutate to the latest row under the store lock, so in-memory
// writers cannot lose updates to each other. A mutate returning
// app.ErrNoChange leaves the row and version untouched and publishes nothing.
func (s *SessionStore) Update(_ context.Context, id string, mutate func(domain.Session) (domain.Session, error)) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrRoomNotFound
	}

	next, err := mutate(current.Clone())
	if errors.Is(err, app.ErrNoChange) {
		return current.Clone(), nil
	}
	if err != nil {
		return domain.Session{}, err
	}

	next.Version = current.Version + 1
	s.sessions[id] = next.Clone()
	if next.RoomCode != current.RoomCode {
		delete(s.byCode, current.RoomCode)
		s.byCode[next.RoomCode] = id
	}

	row := next.Clone()
	s.broadcastLocked(id, domain.SessionEvent{
		Type:      domain.EventUpdate,
		SessionID: id,
		New:       &row,
	})
	return next, nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	delete(s.sessions, id)
	delete(s.byCode, session.RoomCode)

	s.broadcastLocked(id, domain.SessionEvent{
		Type:      domain.EventDelete,
		SessionID: id,
	})
	for ch := range s.subscribers[id] {
		close(ch)
	}
	delete(s.subscribers, id)
	return nil
}

func (s *SessionStore) Subscribe(_ context.Context, id string) (<-chan domain.SessionEvent, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return nil, nil, domain.ErrRoomNotFound
	}

	ch := make(chan domain.SessionEvent, 8)
	if s.subscribers[id] == nil {
		s.subscribers[id] = make(map[chan domain.SessionEvent]struct{})
	}
	s.subscribers[id][ch] = struct{}{}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if subs, ok := s.subscribers[id]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
		}
	}
	return ch, cancel, nil
}

func (s *SessionStore) broadcastLocked(id string, event domain.SessionEvent) {
	for ch := range s.subscribers[id] {
		select {
		case ch <- event:
		default:
			// Drop the oldest pending event rather than block the writer;
			// each event carries the full row so clients lose nothing.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
