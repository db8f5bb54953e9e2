package memory

import (
	"context"
	"errors"
	"testing"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

func seedSession() domain.Session {
	return domain.Session{
		ID:         "room-1",
		RoomCode:   "ABCD",
		Status:     domain.StatusWaiting,
		HostID:     "host",
		Players:    []domain.Player{domain.NewPlayer("host", "Hana", "", true)},
		AnswerLogs: map[string][]domain.AnswerLogEntry{},
	}
}

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	created, err := store.Create(ctx, seedSession())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1, got %d", created.Version)
	}

	byID, err := store.Get(ctx, "room-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	byCode, err := store.GetByRoomCode(ctx, "ABCD")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if byID.ID != byCode.ID {
		t.Fatalf("code lookup resolved a different row")
	}

	if err := store.Delete(ctx, "room-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "room-1"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound after delete, got %v", err)
	}
	if _, err := store.GetByRoomCode(ctx, "ABCD"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected code index cleared, got %v", err)
	}
}

func TestSessionStoreUpdateBumpsVersion(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	if _, err := store.Create(ctx, seedSession()); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := store.Update(ctx, "room-1", func(cur domain.Session) (domain.Session, error) {
		cur.Status = domain.StatusPlaying
		return cur, nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 || updated.Status != domain.StatusPlaying {
		t.Fatalf("expected committed version 2, got %+v", updated)
	}
}

func TestSessionStoreNoChangeSkipsWrite(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	if _, err := store.Create(ctx, seedSession()); err != nil {
		t.Fatalf("create: %v", err)
	}

	events, cancel, err := store.Subscribe(ctx, "room-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	current, err := store.Update(ctx, "room-1", func(cur domain.Session) (domain.Session, error) {
		cur.Status = domain.StatusFinished // must be discarded
		return cur, app.ErrNoChange
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if current.Version != 1 || current.Status != domain.StatusWaiting {
		t.Fatalf("expected untouched row, got %+v", current)
	}
	select {
	case event := <-events:
		t.Fatalf("expected no event for absorbed update, got %+v", event)
	default:
	}
}

func TestSessionStoreMutationsCannotAliasStoredRow(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	if _, err := store.Create(ctx, seedSession()); err != nil {
		t.Fatalf("create: %v", err)
	}

	leaked, err := store.Get(ctx, "room-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	leaked.Players[0].Score = 9999

	fresh, err := store.Get(ctx, "room-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fresh.Players[0].Score != 0 {
		t.Fatalf("stored row mutated through a read copy")
	}
}

func TestSessionStoreSubscribeDelivery(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	if _, err := store.Create(ctx, seedSession()); err != nil {
		t.Fatalf("create: %v", err)
	}

	events, cancel, err := store.Subscribe(ctx, "room-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if _, err := store.Update(ctx, "room-1", func(cur domain.Session) (domain.Session, error) {
		cur.Status = domain.StatusPlaying
		return cur, nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	event := <-events
	if event.Type != domain.EventUpdate || event.New == nil || event.New.Version != 2 {
		t.Fatalf("expected UPDATE with version 2 row, got %+v", event)
	}

	if err := store.Delete(ctx, "room-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	event, ok := <-events
	if !ok || event.Type != domain.EventDelete {
		t.Fatalf("expected DELETE event, got ok=%v %+v", ok, event)
	}
	if _, ok := <-events; ok {
		t.Fatalf("expected channel closed after delete")
	}
}
