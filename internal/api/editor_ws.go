package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flexinfer/scrapeflow/internal/metrics"
	"github.com/flexinfer/scrapeflow/internal/planner"
	"github.com/flexinfer/scrapeflow/pkg/types"
)

const (
	editorWSWriteWait  = 10 * time.Second
	editorWSPongWait   = 60 * time.Second
	editorWSPingEvery  = (editorWSPongWait * 9) / 10
	editorWSMaxMessage = 1 << 20
)

// editorInbound is a message from the editor.
//
//	{"type":"can_connect","id":"7","edge":{...},"nodes":[...],"edges":[...]}
//	{"type":"compile","id":"8","nodes":[...],"edges":[...]}
//	{"type":"ping"}
type editorInbound struct {
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`
	Edge  json.RawMessage `json:"edge,omitempty"`
	Nodes []types.Node    `json:"nodes,omitempty"`
	Edges []types.Edge    `json:"edges,omitempty"`
}

type editorOutbound struct {
	Type        string               `json:"type"`
	ID          string               `json:"id,omitempty"`
	Allowed     *bool                `json:"allowed,omitempty"`
	Reason      string               `json:"reason,omitempty"`
	Plan        *types.ExecutionPlan `json:"plan,omitempty"`
	Fingerprint string               `json:"fingerprint,omitempty"`
	CreditsCost int                  `json:"creditsCost,omitempty"`
	Code        string               `json:"code,omitempty"`
	Errors      []types.InputError   `json:"errors,omitempty"`
	Message     string               `json:"message,omitempty"`
}

func (h *Handlers) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Same-origin clients send no Origin header.
			if origin == "" || h.originAllowed(origin) {
				return true
			}
			h.logger.Warn("websocket origin rejected",
				slog.String("origin", origin),
				slog.String("remote_addr", r.RemoteAddr),
			)
			return false
		},
	}
}

// EditorWS handles GET /api/v1/editor/ws. The editor asks whether a drag
// may become an edge and previews the plan without an HTTP round trip per
// gesture.
func (h *Handlers) EditorWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.EditorConnections.Inc()
	defer metrics.EditorConnections.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(editorWSMaxMessage)
	if err := conn.SetReadDeadline(time.Now().Add(editorWSPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(editorWSPongWait))
	})

	writeCh := make(chan editorOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(editorWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(editorWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(editorWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	h.logger.Debug("editor session opened", slog.String("remote_addr", r.RemoteAddr))

	for {
		var in editorInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("editor session read failed", "error", err)
			}
			cancel()
			<-writerDone
			return
		}

		out := h.handleEditorMessage(ctx, &in)
		select {
		case writeCh <- out:
		case <-ctx.Done():
			<-writerDone
			return
		}
	}
}

func (h *Handlers) handleEditorMessage(ctx context.Context, in *editorInbound) editorOutbound {
	switch strings.ToLower(strings.TrimSpace(in.Type)) {
	case "ping":
		return editorOutbound{Type: "pong", ID: in.ID}

	case "can_connect":
		resp, result, err := h.checkEdge(&CanConnectRequest{Edge: in.Edge, Nodes: in.Nodes, Edges: in.Edges})
		switch {
		case result != nil:
			return editorOutbound{Type: "error", ID: in.ID, Code: ErrCodeValidationFailed, Message: result.Errors[0].Message}
		case err != nil:
			return editorOutbound{Type: "error", ID: in.ID, Code: ErrCodeBadRequest, Message: err.Error()}
		}
		return editorOutbound{Type: "verdict", ID: in.ID, Allowed: &resp.Allowed, Reason: resp.Reason}

	case "compile":
		def := &types.Definition{Nodes: in.Nodes, Edges: in.Edges}
		outcome, err := h.compile(ctx, def)
		if err != nil {
			if ce, ok := planner.AsCompileError(err); ok {
				return editorOutbound{Type: "compile_error", ID: in.ID, Code: string(ce.Code), Errors: ce.Errors}
			}
			return editorOutbound{Type: "error", ID: in.ID, Code: ErrCodeInternalError, Message: err.Error()}
		}
		return editorOutbound{
			Type:        "plan",
			ID:          in.ID,
			Plan:        outcome.Plan,
			Fingerprint: outcome.Fingerprint,
			CreditsCost: h.catalog.Cost(def.Nodes),
		}

	case "":
		return editorOutbound{Type: "error", ID: in.ID, Code: ErrCodeBadRequest, Message: "type is required"}
	default:
		return editorOutbound{Type: "error", ID: in.ID, Code: ErrCodeBadRequest, Message: "unknown message type " + in.Type}
	}
}
