package app

import (
	"context"

	"quiz-room-service/internal/domain"
)

// UsePowerUp spends one inventory unit of kind for the player. The two
// persistent kinds (DOUBLE_POINTS, STREAK_SAVER) arm an effect consumed later
// by the scoring path; FIFTY_FIFTY and TIME_FREEZE act purely client-side, so
// the server only tracks the inventory decrement.
//
// Arming an already-armed persistent effect still burns the inventory unit
// without stacking. That waste is the player's cost; the engine does not
// second-guess it.
func (s *RoomService) UsePowerUp(ctx context.Context, roomID, playerID string, kind domain.PowerUpKind) (domain.Session, error) {
	return s.sessions.Update(ctx, roomID, func(cur domain.Session) (domain.Session, error) {
		player := cur.Player(playerID)
		if player == nil {
			logWarn("power-up from unknown player %s in room %s", playerID, cur.ID)
			return cur, ErrNoChange
		}
		if player.Inventory[kind] <= 0 {
			logWarn("player %s has no %s left in room %s", playerID, kind, cur.ID)
			return cur, ErrNoChange
		}
		player.Inventory[kind]--
		switch kind {
		case domain.PowerUpDoublePoints, domain.PowerUpStreakSaver:
			if player.HasEffect(kind) {
				logWarn("player %s re-armed %s while active in room %s", playerID, kind, cur.ID)
			}
			player.ArmEffect(kind)
		}
		return cur, nil
	})
}
