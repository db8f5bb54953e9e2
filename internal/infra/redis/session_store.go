package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

const (
	roomKeyPrefix     = "room:"
	roomCodeKeyPrefix = "room:code:"
	eventChanPrefix   = "room:events:"

	// casRetries bounds the optimistic-lock loop; conflicts are short
	// round-robin races between players, so a handful of retries suffices.
	casRetries = 8
)

// SessionStore persists each session as a JSON row in Redis and fans out
// full-row events over Redis pub/sub.
//
// Mutations commit with compare-and-swap: the row key is WATCHed, the pure
// transition runs against the freshly read row, and the write happens in a
// MULTI/EXEC that fails if any other writer touched the key in between. This
// closes the lost-update window of a naive read-modify-write.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, session domain.Session) (domain.Session, error) {
	session.Version = 1
	data, err := json.Marshal(session)
	if err != nil {
		return domain.Session{}, fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.roomKey(session.ID), data, s.ttl)
	pipe.Set(ctx, s.codeKey(session.RoomCode), session.ID, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Session{}, fmt.Errorf("%w: create room %s: %v", domain.ErrPersistence, session.ID, err)
	}
	return session, nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	raw, err := s.client.Get(ctx, s.roomKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: get room %s: %v", domain.ErrPersistence, id, err)
	}
	return unmarshalSession(raw)
}

func (s *SessionStore) GetByRoomCode(ctx context.Context, roomCode string) (domain.Session, error) {
	id, err := s.client.Get(ctx, s.codeKey(roomCode)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: resolve room code %s: %v", domain.ErrPersistence, roomCode, err)
	}
	return s.Get(ctx, id)
}

func (s *SessionStore) Update(ctx context.Context, id string, mutate func(domain.Session) (domain.Session, error)) (domain.Session, error) {
	key := s.roomKey(id)

	var (
		result    domain.Session
		committed bool
	)
	transact := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: read room %s: %v", domain.ErrPersistence, id, err)
		}
		current, err := unmarshalSession(raw)
		if err != nil {
			return err
		}

		next, err := mutate(current)
		if errors.Is(err, app.ErrNoChange) {
			result, committed = current, false
			return nil
		}
		if err != nil {
			return err
		}

		next.Version = current.Version + 1
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			pipe.Expire(ctx, s.codeKey(next.RoomCode), s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result, committed = next, true
		return nil
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		err := s.client.Watch(ctx, transact, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue // row changed under us, retry against the new state
		}
		if err != nil {
			return domain.Session{}, err
		}
		if committed {
			s.publish(ctx, domain.SessionEvent{
				Type:      domain.EventUpdate,
				SessionID: id,
				New:       &result,
			})
		}
		return result, nil
	}
	return domain.Session{}, fmt.Errorf("%w: update room %s: too many write conflicts", domain.ErrPersistence, id)
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.roomKey(id))
	pipe.Del(ctx, s.codeKey(session.RoomCode))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: delete room %s: %v", domain.ErrPersistence, id, err)
	}

	s.publish(ctx, domain.SessionEvent{
		Type:      domain.EventDelete,
		SessionID: id,
	})
	return nil
}

// Subscribe relays the room's pub/sub channel as SessionEvents. The stream
// terminates after a DELETE event; the caller must still invoke cancel.
func (s *SessionStore) Subscribe(ctx context.Context, id string) (<-chan domain.SessionEvent, func(), error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, nil, err
	}

	pubsub := s.client.Subscribe(ctx, s.eventChannel(id))
	// Force the subscription onto the wire before we hand the channel out.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("%w: subscribe room %s: %v", domain.ErrPersistence, id, err)
	}

	out := make(chan domain.SessionEvent, 8)
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = pubsub.Close()
		})
	}

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event domain.SessionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			out <- event
			if event.Type == domain.EventDelete {
				cancel()
				return
			}
		}
	}()
	return out, cancel, nil
}

func (s *SessionStore) publish(ctx context.Context, event domain.SessionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	// Fan-out is best effort; a dropped event only delays convergence until
	// the next write.
	_ = s.client.Publish(ctx, s.eventChannel(event.SessionID), payload).Err()
}

func (s *SessionStore) roomKey(id string) string {
	return roomKeyPrefix + id
}

func (s *SessionStore) codeKey(code string) string {
	return roomCodeKeyPrefix + code
}

func (s *SessionStore) eventChannel(id string) string {
	return eventChanPrefix + id
}

func unmarshalSession(raw []byte) (domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}
