package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/4rdii/transaction-debugger-agent/pkg/agent"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/common"
	"github.com/4rdii/transaction-debugger-agent/pkg/debugger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	FrameProgress = "progress"
	FrameResult   = "result"
	FrameError    = "error"

	streamBuffer = 64
	writeTimeout = 10 * time.Second
)

// Frame is one websocket message of a streamed analysis. Every frame of a
// stream carries the same ID.
type Frame struct {
	ID     uuid.UUID        `json:"id"`
	Type   string           `json:"type"`
	Event  *agent.Event     `json:"event,omitempty"`
	Result *analysis.Result `json:"result,omitempty"`
	Error  *ErrorResponse   `json:"error,omitempty"`
}

// stream runs an analysis and pushes progress events followed by the result.
// The analysis runs to completion even if the peer disconnects, so the result
// still reaches the cache.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	req := DebugRequest{
		TxHash:    r.URL.Query().Get("txHash"),
		NetworkID: r.URL.Query().Get("networkId"),
	}

	if err := h.validate.Struct(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request", validationDetails(err))

		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("Websocket upgrade failed")

		return
	}

	id := uuid.New()
	log := h.log.WithFields(logrus.Fields{
		"stream_id":  id.String(),
		"tx_hash":    req.TxHash,
		"network_id": req.NetworkID,
	})

	frames := make(chan Frame, streamBuffer)
	done := make(chan struct{})

	go discardReads(conn)
	go h.writeFrames(log, conn, frames, done)

	// Progress must never hold up the analysis, so frames a slow peer has not
	// taken yet are dropped. The final frame below is always queued.
	observer := agent.ObserverFunc(func(e agent.Event) {
		select {
		case frames <- Frame{ID: id, Type: FrameProgress, Event: &e}:
		default:
			common.StreamFramesDropped.Inc()
		}
	})

	result, err := h.service.Explain(context.WithoutCancel(r.Context()), req.TxHash, req.NetworkID, observer)
	if err != nil {
		frames <- Frame{ID: id, Type: FrameError, Error: streamError(err)}
	} else {
		frames <- Frame{ID: id, Type: FrameResult, Result: result}
	}

	close(frames)
	<-done
}

// writeFrames is the only writer on conn. After the first failed write it keeps
// draining frames so the producer never blocks.
func (h *Handler) writeFrames(log logrus.FieldLogger, conn *websocket.Conn, frames <-chan Frame, done chan<- struct{}) {
	defer close(done)
	defer conn.Close()

	gone := false

	for f := range frames {
		if gone {
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))

		if err := conn.WriteJSON(f); err != nil {
			log.WithError(err).Debug("Stream peer gone, dropping remaining frames")

			gone = true
		}
	}

	if !gone {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
	}
}

// discardReads services control frames until the connection closes.
func discardReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func streamError(err error) *ErrorResponse {
	var upstream *debugger.UpstreamError

	switch {
	case errors.Is(err, debugger.ErrInvalidRequest):
		return &ErrorResponse{Error: "Invalid request", Details: err.Error()}
	case errors.As(err, &upstream):
		return &ErrorResponse{Error: upstream.Err.Error(), Details: upstream.Service}
	default:
		return &ErrorResponse{Error: "Internal server error", Details: err.Error()}
	}
}
