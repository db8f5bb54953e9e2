package app

import (
	"context"
	"errors"
	"math"
	"time"

	"quiz-room-service/internal/domain"
)

const (
	baseScore    = 1000
	maxTimeBonus = 500
	maxTimeMs    = 20000
	// A redeemed answer pays half base, flat: no time bonus, no streak.
	redemptionFactor = 0.5
)

// streakMultiplier rewards consecutive correct answers. The streak passed in
// already includes the answer being scored.
func streakMultiplier(streak int) float64 {
	switch {
	case streak >= 10:
		return 2.0
	case streak >= 5:
		return 1.5
	case streak >= 3:
		return 1.2
	default:
		return 1.0
	}
}

// AnswerSubmission is the scoring signal from clients. When the room's topic
// has a server-side question bank, OptionID is graded by the server and
// Correct is ignored; otherwise the client's claim is taken as-is.
type AnswerSubmission struct {
	QuestionIndex int
	OptionID      string
	Correct       bool
	TimeSpentMs   int64
	IsRedemption  bool
}

// AnswerResult summarizes the outcome of one submission. Applied is false
// when the submission was silently absorbed (duplicate click, ineligible
// redemption, unknown player).
type AnswerResult struct {
	QuestionIndex int  `json:"questionIndex"`
	Applied       bool `json:"applied"`
	Correct       bool `json:"correct"`
	PointsEarned  int  `json:"pointsEarned"`
	Streak        int  `json:"streak"`
	TotalScore    int  `json:"totalScore"`
	IsRedemption  bool `json:"isRedemption"`
}

// SubmitAnswer validates, scores, and persists one answer. Benign races
// (double submission, stale redemption attempts) absorb silently: the row is
// left untouched and no error surfaces, since the client converges on the
// next realtime update.
func (s *RoomService) SubmitAnswer(ctx context.Context, roomID, playerID string, sub AnswerSubmission) (domain.Session, AnswerResult, error) {
	session, err := s.sessions.Get(ctx, roomID)
	if err != nil {
		return domain.Session{}, AnswerResult{}, err
	}

	correct, err := s.gradeSubmission(ctx, session, sub)
	if err != nil {
		return domain.Session{}, AnswerResult{}, err
	}

	var result AnswerResult
	updated, err := s.sessions.Update(ctx, roomID, func(cur domain.Session) (domain.Session, error) {
		res, err := applyAnswer(&cur, playerID, sub.QuestionIndex, correct, sub.TimeSpentMs, sub.IsRedemption, s.now())
		result = res
		return cur, err
	})
	if err != nil {
		return domain.Session{}, AnswerResult{}, err
	}
	return updated, result, nil
}

// gradeSubmission resolves correctness server-side when the topic has a
// question bank, falling back to the client's claim when it does not.
func (s *RoomService) gradeSubmission(ctx context.Context, session domain.Session, sub AnswerSubmission) (bool, error) {
	if s.topics == nil || sub.OptionID == "" {
		return sub.Correct, nil
	}
	bank, err := s.topics.GetBank(ctx, session.TopicConfig.Topic)
	if errors.Is(err, domain.ErrTopicNotFound) {
		return sub.Correct, nil
	}
	if err != nil {
		return false, err
	}
	return bank.Grade(sub.QuestionIndex, sub.OptionID)
}

// applyAnswer is the pure scoring transition: it validates the submission
// against the answer log, computes the payout, and mutates the cloned row in
// place. It returns ErrNoChange for submissions that must be absorbed.
func applyAnswer(cur *domain.Session, playerID string, questionIndex int, correct bool, timeSpentMs int64, isRedemption bool, now time.Time) (AnswerResult, error) {
	player := cur.Player(playerID)
	if player == nil {
		logWarn("answer from unknown player %s in room %s", playerID, cur.ID)
		return AnswerResult{}, ErrNoChange
	}

	key := domain.AnswerKey(questionIndex)
	var prior *domain.AnswerLogEntry
	for i := range cur.AnswerLogs[key] {
		if cur.AnswerLogs[key][i].UID == playerID {
			prior = &cur.AnswerLogs[key][i]
		}
	}

	result := AnswerResult{QuestionIndex: questionIndex, IsRedemption: isRedemption}

	if isRedemption {
		if player.RedemptionUsed {
			logWarn("player %s already used redemption in room %s", playerID, cur.ID)
			return result, ErrNoChange
		}
		if prior == nil || prior.Correct || prior.IsRedemption {
			logWarn("player %s has no wrong answer to redeem for %s in room %s", playerID, key, cur.ID)
			return result, ErrNoChange
		}
		// The one-shot flag burns on any eligible attempt, right or wrong.
		player.RedemptionUsed = true
		if correct {
			result.PointsEarned = int(math.Round(baseScore * redemptionFactor))
			player.Score += result.PointsEarned
		}
		// Redemption touches neither streak nor question index.
	} else {
		if prior != nil {
			// Duplicate submission guard: at most one normal entry per
			// (player, question).
			return result, ErrNoChange
		}
		if correct {
			player.Streak++
			// Clamp to [0,1]: timeSpentMs arrives unvalidated off the wire,
			// and a negative value must not inflate the bonus.
			timeFactor := 1 - float64(timeSpentMs)/maxTimeMs
			if timeFactor < 0 {
				timeFactor = 0
			}
			if timeFactor > 1 {
				timeFactor = 1
			}
			points := baseScore + int(math.Round(maxTimeBonus*timeFactor))
			earned := int(math.Round(float64(points) * streakMultiplier(player.Streak)))
			if player.HasEffect(domain.PowerUpDoublePoints) {
				earned *= 2
				player.DisarmEffect(domain.PowerUpDoublePoints)
			}
			player.Score += earned
			result.PointsEarned = earned
		} else if player.HasEffect(domain.PowerUpStreakSaver) {
			// The saver burns only when it actually protects a streak.
			player.DisarmEffect(domain.PowerUpStreakSaver)
		} else {
			player.Streak = 0
		}
		player.CurrentQuestionIndex++
		if total := cur.TopicConfig.TotalQuestions; total > 0 && player.CurrentQuestionIndex >= total {
			player.IsFinished = true
			finishSessionIfComplete(cur)
		}
	}

	if cur.AnswerLogs == nil {
		cur.AnswerLogs = map[string][]domain.AnswerLogEntry{}
	}
	cur.AnswerLogs[key] = append(cur.AnswerLogs[key], domain.AnswerLogEntry{
		UID:          playerID,
		Correct:      correct,
		Timestamp:    now,
		IsRedemption: isRedemption,
	})

	recomputeTeams(cur)

	result.Applied = true
	result.Correct = correct
	result.Streak = player.Streak
	result.TotalScore = player.Score
	return result, nil
}

// finishSessionIfComplete flips a playing room to FINISHED once every player
// is done. The game ends when the last player finishes, not on a clock.
func finishSessionIfComplete(cur *domain.Session) {
	if cur.Status != domain.StatusPlaying || len(cur.Players) == 0 {
		return
	}
	for i := range cur.Players {
		if !cur.Players[i].IsFinished {
			return
		}
	}
	cur.Status = domain.StatusFinished
}
