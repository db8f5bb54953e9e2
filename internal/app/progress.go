package app

import (
	"context"

	"quiz-room-service/internal/domain"
)

// FinishPlayer marks a player done and snaps their pointer to the end of the
// question set. When the last unfinished player finishes, the room flips to
// FINISHED; this and the normal-answer path reaching the final question are
// the only ways a room completes.
func (s *RoomService) FinishPlayer(ctx context.Context, roomID, playerID string) (domain.Session, error) {
	return s.sessions.Update(ctx, roomID, func(cur domain.Session) (domain.Session, error) {
		player := cur.Player(playerID)
		if player == nil {
			logWarn("finish from unknown player %s in room %s", playerID, cur.ID)
			return cur, ErrNoChange
		}
		if player.IsFinished {
			return cur, ErrNoChange
		}
		player.IsFinished = true
		player.CurrentQuestionIndex = cur.TopicConfig.TotalQuestions
		finishSessionIfComplete(&cur)
		return cur, nil
	})
}
