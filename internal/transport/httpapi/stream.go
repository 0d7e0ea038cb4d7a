package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/redstonesim/internal/protocol"
	"github.com/roach88/redstonesim/internal/recorder"
	"github.com/roach88/redstonesim/internal/sim"
)

// Stream message types.
const (
	MessageDiff  = "diff"
	MessageDone  = "done"
	MessageError = "error"
)

const (
	streamReadTimeout  = 30 * time.Second
	streamWriteTimeout = 5 * time.Second
)

// StreamMessage is one server message on /v1/stream. A diff message carries
// tick and changes; done carries the run summary; error carries the error
// body.
type StreamMessage struct {
	Type       string              `json:"type"`
	Tick       int                 `json:"tick,omitempty"`
	Changes    []recorder.Change   `json:"changes,omitempty"`
	Stats      *recorder.Stats     `json:"stats,omitempty"`
	Terminated string              `json:"terminated,omitempty"`
	Warnings   []protocol.Warning  `json:"warnings,omitempty"`
	Digest     string              `json:"digest,omitempty"`
	RunID      string              `json:"run_id,omitempty"`
	Error      *protocol.ErrorBody `json:"error,omitempty"`
}

// handleStream runs one simulation per connection. The client sends a
// simulate request document; the server answers with one diff message per
// tick that changed something, in tick order, then a done message, then
// closes. A client that disconnects cancels the run.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.maxBody)

	_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sink := func(d recorder.Diff) {
		if ctx.Err() != nil {
			return
		}
		msg := StreamMessage{Type: MessageDiff, Tick: d.Tick, Changes: d.Changes}
		if err := writeMessage(conn, msg); err != nil {
			s.logger.Debug("stream client gone", "tick", d.Tick, "error", err)
			cancel()
		}
	}

	req, res, err := s.svc.Run(ctx, raw, sim.WithSink(sink))
	if err != nil {
		if ctx.Err() != nil {
			// Nobody is listening any more.
			return
		}
		body := protocol.NewErrorResponse(err).Error
		_ = writeMessage(conn, StreamMessage{Type: MessageError, Error: &body})
		closeNormal(conn)
		return
	}

	done := protocol.NewSimulateResponse(res)
	msg := StreamMessage{
		Type:       MessageDone,
		Stats:      &done.Stats,
		Terminated: done.Terminated,
		Warnings:   done.Warnings,
		Digest:     done.Digest,
	}
	if s.journal != nil {
		id, err := s.journal.WriteRun(ctx, req, res)
		if err != nil {
			s.logger.Error("journal write failed", "error", err)
			body := protocol.NewErrorResponse(err).Error
			_ = writeMessage(conn, StreamMessage{Type: MessageError, Error: &body})
			closeNormal(conn)
			return
		}
		msg.RunID = id
	}
	if err := writeMessage(conn, msg); err != nil {
		return
	}
	closeNormal(conn)
}

func writeMessage(conn *websocket.Conn, msg StreamMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func closeNormal(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
