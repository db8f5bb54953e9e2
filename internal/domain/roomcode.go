package domain

import "math/rand"

// RoomCodeAlphabet excludes 0, 1, I and O so codes survive being read aloud
// or typed from a projector.
const RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RoomCodeLength gives 32^4 (~1.05M) combinations. Collisions are not
// checked; rooms are short-lived and the birthday bound is acceptable.
const RoomCodeLength = 4

// NewRoomCode generates a join code by uniform selection per character.
func NewRoomCode() string {
	buf := make([]byte, RoomCodeLength)
	for i := range buf {
		buf[i] = RoomCodeAlphabet[rand.Intn(len(RoomCodeAlphabet))]
	}
	return string(buf)
}
