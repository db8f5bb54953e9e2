package app

import (
	"context"
	"log"

	"github.com/google/uuid"

	"quiz-room-service/internal/domain"
)

// DefaultMaxPlayers caps room size when the caller injects no limit. Tiering
// (larger rooms for paying hosts) is a policy decision owned by the caller.
const DefaultMaxPlayers = 8

// CreateRoomInput carries everything the host chooses at creation time.
type CreateRoomInput struct {
	HostID         string
	HostName       string
	HostAvatar     string
	Topic          string
	Subtopic       string
	TotalQuestions int
	MaxPlayers     int
	TeamMode       bool
}

// JoinUser identifies the joining player.
type JoinUser struct {
	ID          string
	DisplayName string
	AvatarRef   string
}

// CreateRoom generates a room code, seeds the host as the sole player with a
// full power-up inventory, and persists the new session.
func (s *RoomService) CreateRoom(ctx context.Context, in CreateRoomInput) (domain.Session, error) {
	maxPlayers := in.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}

	session := domain.Session{
		ID:       uuid.New().String(),
		RoomCode: domain.NewRoomCode(),
		Status:   domain.StatusWaiting,
		HostID:   in.HostID,
		TopicConfig: domain.TopicConfig{
			Topic:          in.Topic,
			Subtopic:       in.Subtopic,
			TotalQuestions: in.TotalQuestions,
			MaxPlayers:     maxPlayers,
		},
		GameMode:   domain.ModeSolo,
		Players:    []domain.Player{domain.NewPlayer(in.HostID, in.HostName, in.HostAvatar, true)},
		AnswerLogs: map[string][]domain.AnswerLogEntry{},
		CreatedAt:  s.now(),
	}
	if in.TeamMode {
		session.GameMode = domain.ModeTeam
		session.Teams = []domain.Team{{ID: domain.TeamA}, {ID: domain.TeamB}}
	}

	return s.sessions.Create(ctx, session)
}

// JoinRoom adds a player to a waiting room, keyed by room code. A
// reconnecting player (id already present) gets the current row back
// unchanged instead of an error or a duplicate entry.
func (s *RoomService) JoinRoom(ctx context.Context, roomCode string, user JoinUser) (domain.Session, error) {
	session, err := s.sessions.GetByRoomCode(ctx, roomCode)
	if err != nil {
		return domain.Session{}, err
	}

	return s.sessions.Update(ctx, session.ID, func(cur domain.Session) (domain.Session, error) {
		if cur.Status != domain.StatusWaiting {
			return cur, domain.ErrGameAlreadyStarted
		}
		// Reconnect: checked before capacity so a full room never blocks
		// a player who is already in it.
		if cur.HasPlayer(user.ID) {
			return cur, ErrNoChange
		}
		if len(cur.Players) >= cur.TopicConfig.MaxPlayers {
			return cur, domain.ErrRoomFull
		}
		cur.Players = append(cur.Players, domain.NewPlayer(user.ID, user.DisplayName, user.AvatarRef, false))
		recomputeTeams(&cur)
		return cur, nil
	})
}

// StartGame flips a room to PLAYING and resets the shared question pointer.
// Single-player games are permitted; there is no minimum player count.
func (s *RoomService) StartGame(ctx context.Context, roomID string) (domain.Session, error) {
	return s.sessions.Update(ctx, roomID, func(cur domain.Session) (domain.Session, error) {
		if cur.Status != domain.StatusWaiting {
			return cur, ErrNoChange
		}
		cur.Status = domain.StatusPlaying
		cur.CurrentQuestionIndex = 0
		return cur, nil
	})
}

// GetRoom fetches the latest row by session id.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (domain.Session, error) {
	return s.sessions.Get(ctx, roomID)
}

// GetRoomByCode fetches the latest row by join code.
func (s *RoomService) GetRoomByCode(ctx context.Context, roomCode string) (domain.Session, error) {
	return s.sessions.GetByRoomCode(ctx, roomCode)
}

// LeaveRoom removes a player from a waiting room. The host leaving tears the
// room down. After the game starts, leaving is not modeled; self-paced
// progression tolerates absentees and clients simply disconnect.
func (s *RoomService) LeaveRoom(ctx context.Context, roomID, playerID string) error {
	session, err := s.sessions.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if session.HostID == playerID {
		return s.DeleteRoom(ctx, roomID)
	}

	_, err = s.sessions.Update(ctx, roomID, func(cur domain.Session) (domain.Session, error) {
		if cur.Status != domain.StatusWaiting || !cur.HasPlayer(playerID) {
			return cur, ErrNoChange
		}
		players := cur.Players[:0:0]
		for _, p := range cur.Players {
			if p.ID != playerID {
				players = append(players, p)
			}
		}
		cur.Players = players
		recomputeTeams(&cur)
		return cur, nil
	})
	return err
}

// DeleteRoom is a hard delete; subscribers receive a DELETE event.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID string) error {
	return s.sessions.Delete(ctx, roomID)
}

// Subscribe returns a channel of realtime events for a room. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *RoomService) Subscribe(ctx context.Context, roomID string) (<-chan domain.SessionEvent, func(), error) {
	return s.sessions.Subscribe(ctx, roomID)
}

func logWarn(format string, args ...any) {
	log.Printf("quiz: "+format, args...)
}
