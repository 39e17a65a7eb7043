package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"knowledge-race/internal/app"
	"knowledge-race/internal/domain"
)

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
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

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type answerAck struct {
	TeamID      string `json:"teamId"`
	OptionIndex int    `json:"optionIndex"`
	Accepted    bool   `json:"accepted"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades a board connection. Moderator intents come in, match
// snapshots go out after every state change.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	matchID := ps.ByName("id")
	updates, cancel, err := h.service.Subscribe(r.Context(), matchID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("match_id", matchID).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer; gorilla connections do not support concurrent writes.
	// A failed write closes the connection so the read loop ends too.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Str("match_id", matchID).Msg("ws write error")
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					// Match deleted.
					_ = conn.Close()
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: snap}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if reply, ok := h.handle(r, matchID, inbound); ok {
			if !enqueue(send, writerDone, reply) {
				break
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// enqueue hands msg to the writer. It reports false once the writer has
// stopped instead of blocking on a full queue.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

// handle runs one moderator intent. State changes reach the client through
// the subscription, so only acknowledgements and errors are returned here.
func (h *WSHandler) handle(r *http.Request, matchID string, inbound inboundMessage) (outboundMessage[any], bool) {
	ctx := r.Context()
	var err error
	switch inbound.Type {
	case "start":
		var payload startRequest
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				return errorMessage("invalid start payload"), true
			}
		}
		_, err = h.service.StartMatch(ctx, matchID, payload.Count)
	case "selectAnswer":
		var payload answerRequest
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid answer payload"), true
		}
		var accepted bool
		_, accepted, err = h.service.SelectAnswer(ctx, matchID, payload.TeamID, payload.OptionIndex)
		if err == nil {
			return outboundMessage[any]{Type: "answer", Payload: answerAck{
				TeamID:      payload.TeamID,
				OptionIndex: payload.OptionIndex,
				Accepted:    accepted,
			}}, true
		}
	case "forceReveal":
		_, err = h.service.ForceReveal(ctx, matchID)
	case "confirmResults":
		var results []domain.RoundResult
		results, err = h.service.ConfirmResults(ctx, matchID)
		if err == nil {
			return outboundMessage[any]{Type: "results", Payload: results}, true
		}
	case "advance":
		_, err = h.service.Advance(ctx, matchID)
	case "restart":
		_, err = h.service.Restart(ctx, matchID)
	default:
		return errorMessage("unsupported message type"), true
	}
	if err != nil {
		return errorMessage(err.Error()), true
	}
	return outboundMessage[any]{}, false
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
