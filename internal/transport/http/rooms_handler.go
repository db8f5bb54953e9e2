package http

import (
	"encoding/json"
	"net/http"

	"quiz-room-service/internal/app"
)

// RoomsHandler exposes the room-creation endpoint. Everything after creation
// flows over the websocket.
type RoomsHandler struct {
	service *app.RoomService
}

func NewRoomsHandler(service *app.RoomService) *RoomsHandler {
	return &RoomsHandler{service: service}
}

type createRoomRequest struct {
	HostID         string `json:"hostId"`
	HostName       string `json:"hostName"`
	HostAvatar     string `json:"hostAvatar,omitempty"`
	Topic          string `json:"topic"`
	Subtopic       string `json:"subtopic,omitempty"`
	TotalQuestions int    `json:"totalQuestions"`
	MaxPlayers     int    `json:"maxPlayers,omitempty"`
	TeamMode       bool   `json:"teamMode,omitempty"`
}

// CreateRoom handles POST /rooms and returns the freshly persisted row,
// including the join code the host shares with other players.
func (h *RoomsHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.HostID == "" || req.HostName == "" || req.TotalQuestions <= 0 {
		http.Error(w, "missing hostId, hostName, or totalQuestions", http.StatusBadRequest)
		return
	}

	session, err := h.service.CreateRoom(r.Context(), app.CreateRoomInput{
		HostID:         req.HostID,
		HostName:       req.HostName,
		HostAvatar:     req.HostAvatar,
		Topic:          req.Topic,
		Subtopic:       req.Subtopic,
		TotalQuestions: req.TotalQuestions,
		MaxPlayers:     req.MaxPlayers,
		TeamMode:       req.TeamMode,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(session)
}
