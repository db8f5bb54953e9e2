package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"quiz-room-service/internal/domain"
)

// ErrNoChange is returned by mutation closures to signal a silently absorbed
// request: the repository must not write, bump the version, or publish an
// event. Callers receive the current row and a nil error.
var ErrNoChange = errors.New("no state change")

// SessionRepository abstracts how session rows are stored (in-memory, Redis).
//
// Update is the only mutation path: it re-reads the latest row, applies the
// pure transition, and commits with compare-and-swap on the row's version,
// retrying on conflict. Committed writes are fanned out to subscribers as
// UPDATE events; Delete fans out a DELETE event.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) (domain.Session, error)
	Get(ctx context.Context, id string) (domain.Session, error)
	GetByRoomCode(ctx context.Context, roomCode string) (domain.Session, error)
	Update(ctx context.Context, id string, mutate func(domain.Session) (domain.Session, error)) (domain.Session, error)
	Delete(ctx context.Context, id string) error
	Subscribe(ctx context.Context, id string) (<-chan domain.SessionEvent, func(), error)
}

// TopicRepository loads question banks (from cache/backing store) so the
// server can grade submissions itself.
type TopicRepository interface {
	GetBank(ctx context.Context, topic string) (domain.TopicBank, error)
}

// RoomService contains the quiz room use cases: lifecycle, scoring, teams,
// power-ups and progression. It holds no session state of its own; every
// call fetches the latest row and writes a full replacement back.
type RoomService struct {
	sessions SessionRepository
	topics   TopicRepository

	// rngMu guards rng: mutation closures from concurrent requests may run
	// in parallel under the Redis store, and rand.Rand is not safe for
	// concurrent use.
	rngMu sync.Mutex
	rng   *rand.Rand

	now func() time.Time
}

// shuffle is the only rng access path; it serializes concurrent callers.
func (s *RoomService) shuffle(n int, swap func(i, j int)) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng.Shuffle(n, swap)
}

func NewRoomService(sessions SessionRepository, topics TopicRepository) *RoomService {
	return &RoomService{
		sessions: sessions,
		topics:   topics,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// NewRoomServiceWithClock is test-only for deterministic timestamps and shuffles.
func NewRoomServiceWithClock(sessions SessionRepository, topics TopicRepository, now func() time.Time, seed int64) *RoomService {
	return &RoomService{
		sessions: sessions,
		topics:   topics,
		rng:      rand.New(rand.NewSource(seed)),
		now:      now,
	}
}
