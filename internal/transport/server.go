// Copyright 2026 The Attune Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/attuneai/attune/internal/coordinator"
	"github.com/attuneai/attune/internal/log"
	"github.com/attuneai/attune/internal/render"
	"github.com/attuneai/attune/internal/report"
	"github.com/attuneai/attune/internal/telemetry"
	"github.com/attuneai/attune/internal/workflow"
	pkgerrors "github.com/attuneai/attune/pkg/errors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20

	sendBufferSize = 64
)

// Engine is the coordinator surface the server needs.
type Engine interface {
	Submit(ctx context.Context, workflowID, input string) (*coordinator.RunHandle, error)
	Cancel(workflowID string) bool
	Status(workflowID string) coordinator.Status
}

// TelemetrySource produces snapshots on demand.
type TelemetrySource interface {
	Refresh(ctx context.Context) *telemetry.Snapshot
}

// Server accepts side panel connections and bridges them to the engine.
// It also implements coordinator.Emitter so run lifecycle events fan out
// to every connected panel.
type Server struct {
	engine    Engine
	registry  *workflow.Registry
	telemetry TelemetrySource
	logger    *slog.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewServer builds a websocket server. telemetry may be nil when the
// telemetry surface is disabled.
func NewServer(engine Engine, registry *workflow.Registry, telemetry TelemetrySource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:    engine,
		registry:  registry,
		telemetry: telemetry,
		logger:    log.WithComponent(logger, "transport"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		clients: make(map[*client]struct{}),
	}
}

type client struct {
	conn *websocket.Conn
	send chan *Message
}

// ServeHTTP upgrades the connection and runs the read/write pumps until the
// panel disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan *Message, sendBufferSize),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Info("panel connected", "remote", conn.RemoteAddr().String())

	go s.writePump(c)
	s.readPump(r.Context(), c)
}

func (s *Server) readPump(ctx context.Context, c *client) {
	defer s.dropClient(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("panel read error", log.Error(err))
			}
			return
		}
		if msg.Type != MessageTypeRequest {
			continue
		}
		s.dispatch(ctx, c, &msg)
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) dropClient(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
	c.conn.Close()
}

func (s *Server) dispatch(ctx context.Context, c *client, msg *Message) {
	switch msg.Method {
	case MethodSubmit:
		s.handleSubmit(ctx, c, msg)
	case MethodCancel:
		s.handleCancel(c, msg)
	case MethodList:
		s.handleList(c, msg)
	case MethodStatus:
		s.handleStatus(c, msg)
	case MethodTelemetry:
		s.handleTelemetry(ctx, c, msg)
	default:
		s.reply(c, NewErrorMessage(msg.CorrelationID, CodeNotFound,
			"unknown method: "+msg.Method, nil))
	}
}

func (s *Server) handleSubmit(ctx context.Context, c *client, msg *Message) {
	var params SubmitParams
	if err := json.Unmarshal(msg.Params, &params); err != nil || params.WorkflowID == "" {
		s.reply(c, NewErrorMessage(msg.CorrelationID, CodeInvalidParams,
			"submit requires a workflowId", nil))
		return
	}

	handle, err := s.engine.Submit(ctx, params.WorkflowID, params.Input)
	if err != nil {
		var busy *pkgerrors.BusyError
		if errors.As(err, &busy) {
			s.reply(c, NewErrorMessage(msg.CorrelationID, CodeBusy, busy.Error(),
				map[string]any{"generation": busy.Generation}))
			return
		}
		var notFound *pkgerrors.NotFoundError
		if errors.As(err, &notFound) {
			s.reply(c, NewErrorMessage(msg.CorrelationID, CodeNotFound, notFound.Error(), nil))
			return
		}
		s.reply(c, NewErrorMessage(msg.CorrelationID, CodeInternal, err.Error(), nil))
		return
	}

	s.replyResult(c, msg.CorrelationID, SubmitResult{
		RunID:      handle.RunID,
		Generation: handle.Generation,
	})
}

func (s *Server) handleCancel(c *client, msg *Message) {
	var params CancelParams
	if err := json.Unmarshal(msg.Params, &params); err != nil || params.WorkflowID == "" {
		s.reply(c, NewErrorMessage(msg.CorrelationID, CodeInvalidParams,
			"cancel requires a workflowId", nil))
		return
	}
	s.replyResult(c, msg.CorrelationID, CancelResult{
		Cancelled: s.engine.Cancel(params.WorkflowID),
	})
}

func (s *Server) handleList(c *client, msg *Message) {
	s.replyResult(c, msg.CorrelationID, s.registry.List())
}

func (s *Server) handleStatus(c *client, msg *Message) {
	var params CancelParams
	if err := json.Unmarshal(msg.Params, &params); err != nil || params.WorkflowID == "" {
		s.reply(c, NewErrorMessage(msg.CorrelationID, CodeInvalidParams,
			"status requires a workflowId", nil))
		return
	}
	status := s.engine.Status(params.WorkflowID)
	s.replyResult(c, msg.CorrelationID, StatusPayload{
		WorkflowID: status.WorkflowID,
		RunID:      status.RunID,
		State:      string(status.State),
	})
}

func (s *Server) handleTelemetry(ctx context.Context, c *client, msg *Message) {
	if s.telemetry == nil {
		s.reply(c, NewErrorMessage(msg.CorrelationID, CodeNotFound,
			"telemetry is disabled", nil))
		return
	}
	s.replyResult(c, msg.CorrelationID, s.telemetry.Refresh(ctx))
}

func (s *Server) replyResult(c *client, correlationID string, result any) {
	msg, err := NewResponse(correlationID, result)
	if err != nil {
		s.logger.Error("failed to build response", log.Error(err))
		msg = NewErrorMessage(correlationID, CodeInternal, "failed to encode response", nil)
	}
	s.reply(c, msg)
}

// reply queues a message to one client, dropping it if the client's buffer
// is full. A slow panel must not stall the engine.
func (s *Server) reply(c *client, msg *Message) {
	select {
	case c.send <- msg:
	default:
		s.logger.Warn("panel send buffer full, dropping message")
	}
}

// broadcast queues an event for every connected panel.
func (s *Server) broadcast(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.logger.Warn("panel send buffer full, dropping event", "event", msg.Event)
		}
	}
}

// StatusChanged implements coordinator.Emitter.
func (s *Server) StatusChanged(workflowID, runID string, state coordinator.RunState) {
	msg, err := NewEvent(EventStatusChanged, StatusPayload{
		WorkflowID: workflowID,
		RunID:      runID,
		State:      string(state),
	})
	if err != nil {
		s.logger.Error("failed to build status event", log.Error(err))
		return
	}
	s.broadcast(msg)
}

// ReportReady implements coordinator.Emitter.
func (s *Server) ReportReady(workflowID, runID string, rpt *report.Report, decision render.Decision) {
	msg, err := NewEvent(EventReportReady, ReportPayload{
		WorkflowID: workflowID,
		RunID:      runID,
		Report:     rpt,
		Target:     string(decision.Target),
		Layout:     string(decision.Layout),
		Markdown:   decision.Markdown,
	})
	if err != nil {
		s.logger.Error("failed to build report event", log.Error(err))
		return
	}
	s.broadcast(msg)
}

// BroadcastTelemetry pushes a fresh snapshot to every panel. Called by the
// file watcher's debounced refresh.
func (s *Server) BroadcastTelemetry(snap *telemetry.Snapshot) {
	msg, err := NewEvent(EventTelemetryUpdated, snap)
	if err != nil {
		s.logger.Error("failed to build telemetry event", log.Error(err))
		return
	}
	s.broadcast(msg)
}
