package app

import (
	"context"

	"quiz-room-service/internal/domain"
)

// JoinTeam reassigns a player's team. Switching freely before the game starts
// is allowed; no balancing is enforced here.
func (s *RoomService) JoinTeam(ctx context.Context, roomID, playerID string, teamID domain.TeamID) (domain.Session, error) {
	return s.sessions.Update(ctx, roomID, func(cur domain.Session) (domain.Session, error) {
		if cur.GameMode != domain.ModeTeam || cur.Team(teamID) == nil {
			logWarn("absorbing %v in room %s: mode=%s team=%s", domain.ErrInvalidTeamOperation, cur.ID, cur.GameMode, teamID)
			return cur, ErrNoChange
		}
		player := cur.Player(playerID)
		if player == nil {
			logWarn("team join from unknown player %s in room %s", playerID, cur.ID)
			return cur, ErrNoChange
		}
		player.TeamID = teamID
		recomputeTeams(&cur)
		return cur, nil
	})
}

// AutoBalanceTeams deals players onto the two teams round-robin over a
// uniformly shuffled order, so team sizes never differ by more than one.
func (s *RoomService) AutoBalanceTeams(ctx context.Context, roomID string) (domain.Session, error) {
	return s.sessions.Update(ctx, roomID, func(cur domain.Session) (domain.Session, error) {
		if cur.GameMode != domain.ModeTeam || len(cur.Teams) < 2 {
			logWarn("absorbing %v in room %s: auto-balance with mode=%s teams=%d", domain.ErrInvalidTeamOperation, cur.ID, cur.GameMode, len(cur.Teams))
			return cur, ErrNoChange
		}
		// Fisher-Yates over player positions.
		order := make([]int, len(cur.Players))
		for i := range order {
			order[i] = i
		}
		s.shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		for slot, idx := range order {
			cur.Players[idx].TeamID = cur.Teams[slot%len(cur.Teams)].ID
		}
		recomputeTeams(&cur)
		return cur, nil
	})
}

// recomputeTeams rebuilds every team aggregate from the player list. Team
// rows are never mutated independently; this runs after any mutation that
// touches player scores or membership. Non-team sessions pass through
// unchanged.
func recomputeTeams(cur *domain.Session) {
	if cur.GameMode != domain.ModeTeam {
		return
	}
	for i := range cur.Teams {
		total, members := 0, 0
		for j := range cur.Players {
			if cur.Players[j].TeamID == cur.Teams[i].ID {
				total += cur.Players[j].Score
				members++
			}
		}
		cur.Teams[i].TotalScore = total
		cur.Teams[i].MemberCount = members
	}
}
