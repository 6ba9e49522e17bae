package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Rrens/zara-ai/internal/api/response"
	"github.com/Rrens/zara-ai/internal/chat"
	"github.com/Rrens/zara-ai/internal/domain"
	"github.com/rs/zerolog/log"
)

// viewBuffer bounds the views queued for one event-stream client
const viewBuffer = 64

// ChatHandler handles the visible conversation
type ChatHandler struct {
	chat *chat.Controller
}

// NewChatHandler creates a new chat handler
func NewChatHandler(controller *chat.Controller) *ChatHandler {
	return &ChatHandler{chat: controller}
}

type sendRequest struct {
	Text        string              `json:"text" validate:"max=32000"`
	Attachments []domain.Attachment `json:"attachments" validate:"max=10,dive"`
	Provider    string              `json:"provider" validate:"omitempty,max=50"`
	Model       string              `json:"model" validate:"omitempty,max=100"`
}

// Get returns the current view
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.chat.Snapshot())
}

// Send submits a user turn. With Accept: text/event-stream every view is
// streamed as it is published, otherwise the final outcome is returned.
// The generation is aborted if the client goes away.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	in := chat.SendInput{
		Text:        req.Text,
		Attachments: req.Attachments,
		Provider:    req.Provider,
		Model:       req.Model,
	}
	if err := chat.ValidateInput(in); err != nil {
		writeSendError(w, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		h.streamSend(w, r, in)
		return
	}

	out, err := h.chat.Send(r.Context(), in)
	if err != nil {
		writeSendError(w, err)
		return
	}
	response.OK(w, out)
}

type sendResult struct {
	out *chat.Outcome
	err error
}

func (h *ChatHandler) streamSend(w http.ResponseWriter, r *http.Request, in chat.SendInput) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, "streaming not supported")
		return
	}

	views := make(chan chat.View, viewBuffer)
	done := make(chan sendResult, 1)
	go func() {
		out, err := h.chat.Stream(r.Context(), in, queueView(views))
		done <- sendResult{out: out, err: err}
	}()

	started := false
	var lastSeq uint64
	for {
		select {
		case v := <-views:
			if !started {
				startEventStream(w)
				started = true
			}
			if v.Seq <= lastSeq {
				continue
			}
			lastSeq = v.Seq
			writeEvent(w, "view", v)
			flusher.Flush()

		case res := <-done:
			if res.err != nil {
				if !started {
					writeSendError(w, res.err)
					return
				}
				writeEvent(w, "error", map[string]string{"error": res.err.Error()})
				flusher.Flush()
				return
			}
			if !started {
				startEventStream(w)
			}
			if snap := h.chat.Snapshot(); snap.Seq > lastSeq {
				writeEvent(w, "view", snap)
			}
			writeEvent(w, "done", res.out)
			flusher.Flush()
			return
		}
	}
}

// Abort stops the in-flight generation
func (h *ChatHandler) Abort(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]bool{"aborted": h.chat.Abort()})
}

// Events streams every published view until the client disconnects
func (h *ChatHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, "streaming not supported")
		return
	}

	views := make(chan chat.View, viewBuffer)
	unsubscribe := h.chat.Subscribe(queueView(views))
	defer unsubscribe()

	startEventStream(w)
	snap := h.chat.Snapshot()
	lastSeq := snap.Seq
	writeEvent(w, "view", snap)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case v := <-views:
			if v.Seq <= lastSeq {
				continue
			}
			lastSeq = v.Seq
			writeEvent(w, "view", v)
			flusher.Flush()
		}
	}
}

// queueView feeds views into a buffered channel; a full queue drops the
// view since the next one supersedes it
func queueView(views chan<- chat.View) func(chat.View) {
	return func(v chat.View) {
		select {
		case views <- v:
		default:
			log.Debug().Uint64("seq", v.Seq).Msg("event stream client is behind, dropping view")
		}
	}
}

func writeSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		response.BadRequest(w, err.Error())
	case errors.Is(err, chat.ErrBusy):
		response.Conflict(w, err.Error())
	default:
		response.InternalError(w, "failed to send message")
	}
}

func startEventStream(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}

func writeEvent(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
