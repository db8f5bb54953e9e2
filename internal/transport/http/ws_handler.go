package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

type WSHandler struct {
	service  *app.RoomService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.RoomService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionIndex int    `json:"questionIndex"`
	OptionID      string `json:"optionId,omitempty"`
	Correct       bool   `json:"correct"`
	TimeSpentMs   int64  `json:"timeSpentMs"`
	IsRedemption  bool   `json:"isRedemption"`
}

type powerUpPayload struct {
	Kind domain.PowerUpKind `json:"kind"`
}

type joinTeamPayload struct {
	TeamID domain.TeamID `json:"teamId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the connection, joins the caller into the room named by
// roomCode, and relays room actions and full-row realtime events. Clients
// re-derive all state from the latest row; nothing is diffed server-side.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	roomCode := r.URL.Query().Get("roomCode")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	avatarRef := r.URL.Query().Get("avatar")
	if roomCode == "" || userID == "" || displayName == "" {
		http.Error(w, "missing roomCode, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, err := h.service.GetRoomByCode(r.Context(), roomCode)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	// Known players re-attach directly so a mid-game reconnect is not
	// rejected by the lobby-only join.
	if !session.HasPlayer(userID) {
		session, err = h.service.JoinRoom(r.Context(), roomCode, app.JoinUser{
			ID:          userID,
			DisplayName: displayName,
			AvatarRef:   avatarRef,
		})
		if err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
	}

	events, cancel, err := h.service.Subscribe(r.Context(), session.ID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not allow concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				msg := outboundMessage[any]{Type: "session", Payload: event.New}
				if event.Type == domain.EventDelete {
					msg = outboundMessage[any]{Type: "deleted", Payload: event.SessionID}
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: session}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if h.dispatch(r, send, session.ID, userID, inbound) {
			break
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// dispatch handles one inbound action; the returned bool asks the read loop
// to stop.
func (h *WSHandler) dispatch(r *http.Request, send chan outboundMessage[any], roomID, userID string, inbound inboundMessage) bool {
	ctx := r.Context()
	fail := func(err error) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}

	switch inbound.Type {
	case "start":
		if _, err := h.service.StartGame(ctx, roomID); err != nil {
			fail(err)
		}
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid answer payload"))
			return false
		}
		_, result, err := h.service.SubmitAnswer(ctx, roomID, userID, app.AnswerSubmission{
			QuestionIndex: payload.QuestionIndex,
			OptionID:      payload.OptionID,
			Correct:       payload.Correct,
			TimeSpentMs:   payload.TimeSpentMs,
			IsRedemption:  payload.IsRedemption,
		})
		if err != nil {
			fail(err)
			return false
		}
		send <- outboundMessage[any]{Type: "answerResult", Payload: result}
	case "usePowerUp":
		var payload powerUpPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errors.New("invalid power-up payload"))
			return false
		}
		if _, err := h.service.UsePowerUp(ctx, roomID, userID, payload.Kind); err != nil {
			fail(err)
		}
	case "joinTeam":
		var payload joinTeamPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(domain.ErrInvalidTeamOperation)
			return false
		}
		if _, err := h.service.JoinTeam(ctx, roomID, userID, payload.TeamID); err != nil {
			fail(err)
		}
	case "autoBalance":
		if _, err := h.service.AutoBalanceTeams(ctx, roomID); err != nil {
			fail(err)
		}
	case "finish":
		if _, err := h.service.FinishPlayer(ctx, roomID, userID); err != nil {
			fail(err)
		}
	case "leave":
		if err := h.service.LeaveRoom(ctx, roomID, userID); err != nil {
			fail(err)
			return false
		}
		return true
	default:
		fail(errors.New("unsupported message type"))
	}
	return false
}
