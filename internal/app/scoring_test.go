package app

import (
	"testing"
	"time"

	"quiz-room-service/internal/domain"
)

func testSession(playerIDs ...string) domain.Session {
	s := domain.Session{
		ID:       "room-1",
		RoomCode: "ABCD",
		Status:   domain.StatusPlaying,
		HostID:   playerIDs[0],
		TopicConfig: domain.TopicConfig{
			Topic:          "general",
			TotalQuestions: 10,
			MaxPlayers:     8,
		},
		GameMode:   domain.ModeSolo,
		AnswerLogs: map[string][]domain.AnswerLogEntry{},
	}
	for i, id := range playerIDs {
		s.Players = append(s.Players, domain.NewPlayer(id, "Player "+id, "", i == 0))
	}
	return s
}

var testNow = time.Date(2026, 3, 14, 15, 9, 0, 0, time.UTC)

func TestStreakMultiplierBoundaries(t *testing.T) {
	cases := []struct {
		streak int
		want   float64
	}{
		{0, 1.0},
		{2, 1.0},
		{3, 1.2},
		{4, 1.2},
		{5, 1.5},
		{9, 1.5},
		{10, 2.0},
		{25, 2.0},
	}
	for _, tc := range cases {
		if got := streakMultiplier(tc.streak); got != tc.want {
			t.Errorf("streakMultiplier(%d) = %v, want %v", tc.streak, got, tc.want)
		}
	}
}

func TestApplyAnswerBasePlusTimeBonus(t *testing.T) {
	s := testSession("u1")

	res, err := applyAnswer(&s, "u1", 0, true, 5000, false, testNow)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// round((1000 + round(500*(1-5000/20000))) * 1.0) = 1375
	if res.PointsEarned != 1375 {
		t.Fatalf("expected 1375 points, got %d", res.PointsEarned)
	}
	if res.Streak != 1 {
		t.Fatalf("expected streak 1, got %d", res.Streak)
	}
	p := s.Player("u1")
	if p.Score != 1375 || p.CurrentQuestionIndex != 1 {
		t.Fatalf("expected score=1375 index=1, got score=%d index=%d", p.Score, p.CurrentQuestionIndex)
	}
}

func TestApplyAnswerStreakFiveAtZeroTime(t *testing.T) {
	s := testSession("u1")
	s.Player("u1").Streak = 4

	res, err := applyAnswer(&s, "u1", 0, true, 0, false, testNow)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// round((1000+500) * 1.5) = 2250 once the streak hits 5
	if res.PointsEarned != 2250 {
		t.Fatalf("expected 2250 points, got %d", res.PointsEarned)
	}
}

func TestApplyAnswerTimeBonusFloorsAtZero(t *testing.T) {
	s := testSession("u1")

	res, err := applyAnswer(&s, "u1", 0, true, 60000, false, testNow)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.PointsEarned != 1000 {
		t.Fatalf("expected bare base score 1000, got %d", res.PointsEarned)
	}
}

func TestApplyAnswerNegativeTimeCapsBonus(t *testing.T) {
	s := testSession("u1")

	res, err := applyAnswer(&s, "u1", 0, true, -1_000_000, false, testNow)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// A bogus negative time earns no more than an instant answer.
	if res.PointsEarned != 1500 {
		t.Fatalf("expected bonus capped at 1500, got %d", res.PointsEarned)
	}
}

func TestApplyAnswerDuplicateIsSilentNoOp(t *testing.T) {
	s := testSession("u1")

	if _, err := applyAnswer(&s, "u1", 0, true, 0, false, testNow); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	scoreAfterFirst := s.Player("u1").Score

	res, err := applyAnswer(&s, "u1", 0, true, 0, false, testNow)
	if err != ErrNoChange {
		t.Fatalf("expected ErrNoChange, got %v", err)
	}
	if res.Applied {
		t.Fatalf("expected duplicate to be absorbed")
	}
	if got := s.Player("u1").Score; got != scoreAfterFirst {
		t.Fatalf("expected no double increment, got %d", got)
	}
	if entries := s.AnswerLogs[domain.AnswerKey(0)]; len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
}

func TestApplyAnswerWrongResetsStreak(t *testing.T) {
	s := testSession("u1")
	s.Player("u1").Streak = 7

	res, err := applyAnswer(&s, "u1", 0, false, 1000, false, testNow)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.PointsEarned != 0 {
		t.Fatalf("expected 0 points for wrong answer, got %d", res.PointsEarned)
	}
	if s.Player("u1").Streak != 0 {
		t.Fatalf("expected streak reset, got %d", s.Player("u1").Streak)
	}
	if s.Player("u1").CurrentQuestionIndex != 1 {
		t.Fatalf("wrong answers still advance the index, got %d", s.Player("u1").CurrentQuestionIndex)
	}
}

func TestApplyAnswerStreakSaverProtects(t *testing.T) {
	s := testSession("u1")
	p := s.Player("u1")
	p.Streak = 6
	p.ArmEffect(domain.PowerUpStreakSaver)

	if _, err := applyAnswer(&s, "u1", 0, false, 1000, false, testNow); err != nil {
		t.Fatalf("apply: %v", err)
	}
	p = s.Player("u1")
	if p.Streak != 6 {
		t.Fatalf("expected streak preserved at 6, got %d", p.Streak)
	}
	if p.HasEffect(domain.PowerUpStreakSaver) {
		t.Fatalf("expected saver consumed")
	}
}

func TestApplyAnswerStreakSaverKeptOnCorrect(t *testing.T) {
	s := testSession("u1")
	s.Player("u1").ArmEffect(domain.PowerUpStreakSaver)

	if _, err := applyAnswer(&s, "u1", 0, true, 0, false, testNow); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !s.Player("u1").HasEffect(domain.PowerUpStreakSaver) {
		t.Fatalf("saver must survive a correct answer")
	}
}

func TestApplyAnswerDoublePoints(t *testing.T) {
	s := testSession("u1")
	s.Player("u1").ArmEffect(domain.PowerUpDoublePoints)

	res, err := applyAnswer(&s, "u1", 0, true, 0, false, testNow)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// round((1000+500)*1.0) * 2 = 3000
	if res.PointsEarned != 3000 {
		t.Fatalf("expected 3000 points, got %d", res.PointsEarned)
	}
	if s.Player("u1").HasEffect(domain.PowerUpDoublePoints) {
		t.Fatalf("expected double points consumed")
	}
}

func TestApplyAnswerDoublePointsNotConsumedOnWrong(t *testing.T) {
	s := testSession("u1")
	s.Player("u1").ArmEffect(domain.PowerUpDoublePoints)

	if _, err := applyAnswer(&s, "u1", 0, false, 0, false, testNow); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !s.Player("u1").HasEffect(domain.PowerUpDoublePoints) {
		t.Fatalf("double points only burns when it pays out")
	}
}

func TestRedemptionRequiresPriorWrongAnswer(t *testing.T) {
	s := testSession("u1")

	// No prior entry at all.
	if _, err := applyAnswer(&s, "u1", 0, true, 0, true, testNow); err != ErrNoChange {
		t.Fatalf("expected ErrNoChange without prior answer, got %v", err)
	}

	// Prior entry is correct: still not redeemable.
	if _, err := applyAnswer(&s, "u1", 0, true, 0, false, testNow); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := applyAnswer(&s, "u1", 0, true, 0, true, testNow); err != ErrNoChange {
		t.Fatalf("expected ErrNoChange after correct answer, got %v", err)
	}
	if s.Player("u1").RedemptionUsed {
		t.Fatalf("rejected attempts must not burn the redemption flag")
	}
}

func TestRedemptionScoresFlatAndOnce(t *testing.T) {
	s := testSession("u1")

	if _, err := applyAnswer(&s, "u1", 0, false, 1000, false, testNow); err != nil {
		t.Fatalf("wrong answer: %v", err)
	}
	indexBefore := s.Player("u1").CurrentQuestionIndex
	streakBefore := s.Player("u1").Streak

	res, err := applyAnswer(&s, "u1", 0, true, 15000, true, testNow)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if res.PointsEarned != 500 {
		t.Fatalf("expected flat 500, got %d", res.PointsEarned)
	}
	p := s.Player("u1")
	if !p.RedemptionUsed {
		t.Fatalf("expected redemption flag set")
	}
	if p.CurrentQuestionIndex != indexBefore || p.Streak != streakBefore {
		t.Fatalf("redemption must not touch index or streak")
	}
	if entries := s.AnswerLogs[domain.AnswerKey(0)]; len(entries) != 2 || !entries[1].IsRedemption {
		t.Fatalf("expected a second, redemption-flagged entry, got %+v", entries)
	}

	// Second redemption anywhere is rejected.
	if _, err := applyAnswer(&s, "u1", 1, false, 0, false, testNow); err != nil {
		t.Fatalf("next wrong answer: %v", err)
	}
	if _, err := applyAnswer(&s, "u1", 1, true, 0, true, testNow); err != ErrNoChange {
		t.Fatalf("expected second redemption rejected, got %v", err)
	}
}

func TestIncorrectRedemptionBurnsFlagScoresNothing(t *testing.T) {
	s := testSession("u1")

	if _, err := applyAnswer(&s, "u1", 0, false, 0, false, testNow); err != nil {
		t.Fatalf("wrong answer: %v", err)
	}
	res, err := applyAnswer(&s, "u1", 0, false, 0, true, testNow)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if res.PointsEarned != 0 {
		t.Fatalf("expected 0 points, got %d", res.PointsEarned)
	}
	if !s.Player("u1").RedemptionUsed {
		t.Fatalf("an eligible attempt burns the flag even when wrong")
	}
}

func TestAnswersFinishSessionWhenAllPlayersDone(t *testing.T) {
	s := testSession("u1", "u2")
	s.TopicConfig.TotalQuestions = 1

	if _, err := applyAnswer(&s, "u1", 0, true, 0, false, testNow); err != nil {
		t.Fatalf("u1 answer: %v", err)
	}
	if s.Status != domain.StatusPlaying {
		t.Fatalf("expected PLAYING while u2 is unfinished, got %s", s.Status)
	}
	if !s.Player("u1").IsFinished {
		t.Fatalf("expected u1 finished after last question")
	}

	if _, err := applyAnswer(&s, "u2", 0, false, 0, false, testNow); err != nil {
		t.Fatalf("u2 answer: %v", err)
	}
	if s.Status != domain.StatusFinished {
		t.Fatalf("expected FINISHED once everyone is done, got %s", s.Status)
	}
}

func TestTeamAggregatesFollowScores(t *testing.T) {
	s := testSession("u1", "u2", "u3")
	s.GameMode = domain.ModeTeam
	s.Teams = []domain.Team{{ID: domain.TeamA}, {ID: domain.TeamB}}
	s.Players[0].TeamID = domain.TeamA
	s.Players[1].TeamID = domain.TeamB
	s.Players[2].TeamID = domain.TeamA

	if _, err := applyAnswer(&s, "u1", 0, true, 0, false, testNow); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := applyAnswer(&s, "u3", 0, true, 5000, false, testNow); err != nil {
		t.Fatalf("apply: %v", err)
	}

	teamA := s.Team(domain.TeamA)
	want := s.Players[0].Score + s.Players[2].Score
	if teamA.TotalScore != want || teamA.MemberCount != 2 {
		t.Fatalf("expected team A total=%d members=2, got %+v", want, teamA)
	}
	teamB := s.Team(domain.TeamB)
	if teamB.TotalScore != 0 || teamB.MemberCount != 1 {
		t.Fatalf("expected team B total=0 members=1, got %+v", teamB)
	}
}
