package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
)

// WSHandler lets a browser front-end drive the local quiz session.
type WSHandler struct {
	controller *app.Controller
	gate       app.AuthGate
	upgrader   websocket.Upgrader
}

func NewWSHandler(controller *app.Controller, gate app.AuthGate) *WSHandler {
	return &WSHandler{
		controller: controller,
		gate:       gate,
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
	Answer string `json:"answer"`
}

type answerResult struct {
	Index         int    `json:"index"`
	Answer        string `json:"answer"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	Score         int    `json:"score"`
}

type statePayload struct {
	Phase     app.Phase       `json:"phase"`
	Session   domain.Session  `json:"session"`
	Remaining int             `json:"remaining"`
	Clock     string          `json:"clock"`
	Error     string          `json:"error,omitempty"`
	Summary   *domain.Summary `json:"summary,omitempty"`
}

type tickPayload struct {
	Remaining int    `json:"remaining"`
	Clock     string `json:"clock"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (h *WSHandler) state() statePayload {
	st := h.controller.Status()
	out := statePayload{
		Phase:     st.Phase,
		Session:   st.Session,
		Remaining: st.Remaining,
		Clock:     domain.FormatClock(st.Remaining),
	}
	if st.Err != nil {
		out.Error = st.Err.Error()
	}
	if st.Phase == app.PhaseFinished {
		summary := domain.Summarize(st.Session)
		out.Summary = &summary
	}
	return out
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz controller.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.gate != nil && !h.gate.IsLoggedIn() {
		http.Error(w, domain.ErrNotLoggedIn.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancelCtx := context.WithCancel(r.Context())
	defer cancelCtx()

	updates, cancel := h.controller.Store().Subscribe()
	defer cancel()
	ticks, cancelTicks := h.controller.Timer().Subscribe()
	defer cancelTicks()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-closeSignals:
			return false
		}
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case _, ok := <-updates:
				if !ok {
					return
				}
				if !push(outboundMessage[any]{Type: "state", Payload: h.state()}) {
					return
				}
			case v := <-ticks:
				if !push(outboundMessage[any]{Type: "tick", Payload: tickPayload{Remaining: v, Clock: domain.FormatClock(v)}}) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}
	replyErr := func(err error) {
		reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}

	if err := h.controller.Start(ctx); err != nil {
		replyErr(err)
		reply(outboundMessage[any]{Type: "state", Payload: h.state()})
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Answer == "" {
				replyErr(errors.New("invalid answer payload"))
				continue
			}
			result, err := h.controller.Answer(payload.Answer)
			if err != nil {
				replyErr(err)
				continue
			}
			reply(outboundMessage[any]{Type: "answerResult", Payload: answerResult{
				Index:         result.Index,
				Answer:        result.Answer,
				Correct:       result.Correct,
				CorrectAnswer: result.CorrectAnswer,
				Score:         result.Score,
			}})
		case "retry":
			if err := h.controller.Retry(ctx); err != nil {
				replyErr(err)
				reply(outboundMessage[any]{Type: "state", Payload: h.state()})
			}
		case "newSession":
			if err := h.controller.NewSession(ctx); err != nil {
				replyErr(err)
				reply(outboundMessage[any]{Type: "state", Payload: h.state()})
			}
		case "state":
			reply(outboundMessage[any]{Type: "state", Payload: h.state()})
		default:
			replyErr(errors.New("unsupported message type"))
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
