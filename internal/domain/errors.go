package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code or id matches nothing.
	ErrRoomNotFound = errors.New("room not found")
	// ErrGameAlreadyStarted is returned when a join hits a non-waiting room.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrRoomFull is returned when a new player would exceed max_players.
	ErrRoomFull = errors.New("room is full")
	// ErrInvalidTeamOperation covers team actions outside TEAM mode or
	// against an unknown team id. The engine absorbs these with a warning;
	// the transport returns it for malformed team payloads.
	ErrInvalidTeamOperation = errors.New("invalid team operation")
	// ErrPersistence wraps store read/write failures.
	ErrPersistence = errors.New("persistence failure")
	// ErrTopicNotFound indicates the topic's question bank could not be loaded.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrQuestionNotFound indicates a submitted question index is out of range.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option id is invalid.
	ErrOptionNotFound = errors.New("option not found")
)
