package domain

import (
	"fmt"
	"time"
)

// SessionStatus tracks the lifecycle of a quiz room. It only moves forward.
type SessionStatus string

const (
	StatusWaiting  SessionStatus = "WAITING"
	StatusPlaying  SessionStatus = "PLAYING"
	StatusFinished SessionStatus = "FINISHED"
)

// GameMode is fixed at room creation.
type GameMode string

const (
	ModeSolo GameMode = "SOLO"
	ModeTeam GameMode = "TEAM"
)

// TeamID identifies one of the two fixed teams in TEAM mode.
type TeamID string

const (
	TeamA TeamID = "TEAM_A"
	TeamB TeamID = "TEAM_B"
)

// PowerUpKind enumerates the consumables every player starts with.
type PowerUpKind string

const (
	PowerUpStreakSaver  PowerUpKind = "STREAK_SAVER"
	PowerUpDoublePoints PowerUpKind = "DOUBLE_POINTS"
	PowerUpFiftyFifty   PowerUpKind = "FIFTY_FIFTY"
	PowerUpTimeFreeze   PowerUpKind = "TIME_FREEZE"
)

// DefaultInventory seeds one use of each power-up per room.
func DefaultInventory() map[PowerUpKind]int {
	return map[PowerUpKind]int{
		PowerUpStreakSaver:  1,
		PowerUpDoublePoints: 1,
		PowerUpFiftyFifty:   1,
		PowerUpTimeFreeze:   1,
	}
}

// TopicConfig holds the immutable quiz parameters chosen by the host.
type TopicConfig struct {
	Topic          string `json:"topic"`
	Subtopic       string `json:"subtopic"`
	TotalQuestions int    `json:"totalQuestions"`
	MaxPlayers     int    `json:"max_players"`
}

// Player is embedded in a Session; it is not a separate aggregate.
type Player struct {
	ID                   string              `json:"id"`
	DisplayName          string              `json:"display_name"`
	AvatarRef            string              `json:"avatar_ref,omitempty"`
	Score                int                 `json:"score"`
	IsHost               bool                `json:"is_host"`
	CurrentQuestionIndex int                 `json:"current_question_idx"`
	IsFinished           bool                `json:"is_finished"`
	Streak               int                 `json:"streak"`
	Inventory            map[PowerUpKind]int `json:"inventory"`
	ActiveEffects        []PowerUpKind       `json:"active_effects"`
	TeamID               TeamID              `json:"team_id,omitempty"`
	RedemptionUsed       bool                `json:"redemption_used"`
}

// NewPlayer builds a player with the default room inventory and zero score.
func NewPlayer(id, displayName, avatarRef string, isHost bool) Player {
	return Player{
		ID:          id,
		DisplayName: displayName,
		AvatarRef:   avatarRef,
		IsHost:      isHost,
		Inventory:   DefaultInventory(),
	}
}

// HasEffect reports whether kind is currently armed for the player.
func (p *Player) HasEffect(kind PowerUpKind) bool {
	for _, k := range p.ActiveEffects {
		if k == kind {
			return true
		}
	}
	return false
}

// ArmEffect adds kind to the active set. Arming an already-armed effect is a
// no-op; the set never holds duplicates.
func (p *Player) ArmEffect(kind PowerUpKind) {
	if p.HasEffect(kind) {
		return
	}
	p.ActiveEffects = append(p.ActiveEffects, kind)
}

// DisarmEffect removes kind from the active set if present.
func (p *Player) DisarmEffect(kind PowerUpKind) {
	for i, k := range p.ActiveEffects {
		if k == kind {
			p.ActiveEffects = append(p.ActiveEffects[:i], p.ActiveEffects[i+1:]...)
			return
		}
	}
}

// Team carries aggregated values only; they are recomputed from the player
// list after every relevant mutation, never mutated independently.
type Team struct {
	ID          TeamID `json:"id"`
	TotalScore  int    `json:"total_score"`
	MemberCount int    `json:"member_count"`
}

// AnswerLogEntry records one submission for a (player, question) pair.
type AnswerLogEntry struct {
	UID          string    `json:"uid"`
	Correct      bool      `json:"correct"`
	Timestamp    time.Time `json:"timestamp"`
	IsRedemption bool      `json:"is_redemption"`
}

// Session is the persisted representation of one quiz room. It is treated as
// a value: mutation happens by cloning, transforming, and writing the whole
// row back through the repository.
type Session struct {
	ID                   string                      `json:"id"`
	RoomCode             string                      `json:"room_code"`
	Status               SessionStatus               `json:"status"`
	HostID               string                      `json:"host_id"`
	TopicConfig          TopicConfig                 `json:"topic_config"`
	GameMode             GameMode                    `json:"game_mode"`
	Players              []Player                    `json:"players"`
	Teams                []Team                      `json:"teams"`
	CurrentQuestionIndex int                         `json:"current_question_idx"`
	AnswerLogs           map[string][]AnswerLogEntry `json:"answer_logs"`
	// Version is bumped on every committed write; stores use it for
	// compare-and-swap so concurrent writers cannot silently clobber
	// each other.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// AnswerKey is the answer-log key for a question slot.
func AnswerKey(questionIndex int) string {
	return fmt.Sprintf("q_%d", questionIndex)
}

// Player returns a pointer into the session's player list, or nil.
func (s *Session) Player(id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// HasPlayer reports whether id has already joined.
func (s *Session) HasPlayer(id string) bool {
	return s.Player(id) != nil
}

// Team returns a pointer into the session's team roster, or nil.
func (s *Session) Team(id TeamID) *Team {
	for i := range s.Teams {
		if s.Teams[i].ID == id {
			return &s.Teams[i]
		}
	}
	return nil
}

// Clone deep-copies the session so transitions never alias the stored row.
func (s Session) Clone() Session {
	out := s
	out.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		cp := p
		cp.Inventory = make(map[PowerUpKind]int, len(p.Inventory))
		for k, v := range p.Inventory {
			cp.Inventory[k] = v
		}
		cp.ActiveEffects = append([]PowerUpKind(nil), p.ActiveEffects...)
		out.Players[i] = cp
	}
	out.Teams = append([]Team(nil), s.Teams...)
	if s.AnswerLogs != nil {
		out.AnswerLogs = make(map[string][]AnswerLogEntry, len(s.AnswerLogs))
		for k, entries := range s.AnswerLogs {
			out.AnswerLogs[k] = append([]AnswerLogEntry(nil), entries...)
		}
	}
	return out
}
