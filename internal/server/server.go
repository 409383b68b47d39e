// Package server exposes the capture pipeline to the desktop overlay over
// a loopback WebSocket. Each connection serves one overlay instance; a new
// capture on a connection supersedes any still-running one.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/normanking/glimpse/internal/analyzer"
	"github.com/normanking/glimpse/internal/engine"
	"github.com/normanking/glimpse/internal/logging"
)

// Config holds overlay server settings.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible overlay server defaults.
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         8917,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server accepts overlay WebSocket connections and drives the engine.
type Server struct {
	cfg    Config
	engine *engine.Engine
	log    zerolog.Logger

	httpSrv  *http.Server
	upgrader websocket.Upgrader
}

// New creates an overlay server around the engine.
func New(cfg Config, eng *engine.Engine) *Server {
	s := &Server{
		cfg:    cfg,
		engine: eng,
		log:    logging.For("server"),
		upgrader: websocket.Upgrader{
			// Loopback-only transport; the overlay has no origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.httpSrv = &http.Server{
		Addr:    net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		Handler: mux,
	}
	return s
}

// Start listens until the context is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.httpSrv.Addr).Msg("overlay server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("overlay server: %w", err)
	}
}

// conn is one overlay connection plus its in-flight request state.
type conn struct {
	ws  *websocket.Conn
	srv *Server

	writeMu sync.Mutex

	mu       sync.Mutex
	inflight context.CancelFunc
	reqID    string
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &conn{ws: ws, srv: s}
	s.log.Info().Str("remote", ws.RemoteAddr().String()).Msg("overlay connected")
	c.readLoop(r.Context())
	s.log.Info().Str("remote", ws.RemoteAddr().String()).Msg("overlay disconnected")
}

func (c *conn) readLoop(ctx context.Context) {
	defer func() {
		c.cancelInflight("")
		c.ws.Close()
	}()

	for {
		if c.srv.cfg.ReadTimeout > 0 {
			c.ws.SetReadDeadline(time.Now().Add(c.srv.cfg.ReadTimeout))
		}
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.srv.log.Debug().Err(err).Msg("overlay read ended")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendError("", fmt.Sprintf("malformed envelope: %v", err))
			continue
		}

		switch env.Type {
		case MsgCapture:
			c.handleCapture(ctx, env.Payload)
		case MsgQuery:
			c.handleQuery(ctx, env.Payload)
		case MsgOutcome:
			c.handleOutcome(env.Payload)
		default:
			c.sendError("", fmt.Sprintf("unknown message type %q", env.Type))
		}
	}
}

// handleCapture supersedes any in-flight request and runs the pipeline in
// the background so the read loop keeps draining the connection.
func (c *conn) handleCapture(parent context.Context, raw json.RawMessage) {
	var payload CapturePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError("", fmt.Sprintf("malformed capture: %v", err))
		return
	}

	ctx, cancel := context.WithCancel(parent)
	c.supersede(payload.RequestID, cancel)
	c.sendStatus(payload.RequestID, "processing")

	go func() {
		defer cancel()

		result, err := c.srv.engine.HandleCapture(ctx, &engine.CaptureRequest{
			ScreenshotRefs: payload.ScreenshotRefs,
			ScreenshotData: payload.Screenshots,
			Signals: analyzer.Signals{
				WindowTitle:       payload.WindowTitle,
				ActiveApplication: payload.ActiveApplication,
				ClipboardContent:  payload.ClipboardContent,
				SelectedText:      payload.SelectedText,
			},
			Query:     payload.Query,
			Objective: payload.Objective,
		})
		if ctx.Err() != nil {
			// Superseded; the newer request already reported status.
			return
		}
		if err != nil {
			c.sendError(payload.RequestID, err.Error())
			return
		}

		solution := SolutionPayload{
			RequestID: payload.RequestID,
			ContextID: result.Context.ID,
			Summary:   result.Engineered.Description,
			Actions:   result.Engineered.Actions,
		}
		if result.Prompt != nil {
			solution.Prompt = result.Prompt.Text
			solution.Confidence = result.Prompt.Confidence
		} else {
			solution.Confidence = result.Engineered.Quality.Overall
		}
		if result.Answer != nil {
			solution.Answer = result.Answer.Content
		}
		c.send(MsgSolution, solution)
	}()
}

// handleQuery answers a follow-up question against a cached context. Like
// captures, a newer request supersedes the one in flight.
func (c *conn) handleQuery(parent context.Context, raw json.RawMessage) {
	var payload QueryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError("", fmt.Sprintf("malformed query: %v", err))
		return
	}

	ctx, cancel := context.WithCancel(parent)
	c.supersede(payload.RequestID, cancel)
	c.sendStatus(payload.RequestID, "processing")

	go func() {
		defer cancel()

		result, err := c.srv.engine.HandleQuery(ctx, payload.ContextID, payload.Query, payload.Objective)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.sendError(payload.RequestID, err.Error())
			return
		}

		solution := SolutionPayload{
			RequestID:  payload.RequestID,
			ContextID:  payload.ContextID,
			Summary:    result.Engineered.Description,
			Prompt:     result.Prompt.Text,
			Confidence: result.Prompt.Confidence,
			Actions:    result.Engineered.Actions,
		}
		if result.Answer != nil {
			solution.Answer = result.Answer.Content
		}
		c.send(MsgSolution, solution)
	}()
}

func (c *conn) handleOutcome(raw json.RawMessage) {
	var payload OutcomePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError("", fmt.Sprintf("malformed outcome: %v", err))
		return
	}

	if !c.srv.engine.ReportOutcome(payload.ContextID, payload.UserActions, payload.Outcomes,
		time.Duration(payload.DurationMs)*time.Millisecond) {
		c.sendError("", fmt.Sprintf("unknown context %q", payload.ContextID))
	}
}

// supersede cancels the previous in-flight request, reporting it as
// superseded, and installs the new one.
func (c *conn) supersede(reqID string, cancel context.CancelFunc) {
	c.mu.Lock()
	prev, prevID := c.inflight, c.reqID
	c.inflight, c.reqID = cancel, reqID
	c.mu.Unlock()

	if prev != nil {
		prev()
		if prevID != "" {
			c.sendStatus(prevID, "superseded")
		}
	}
}

func (c *conn) cancelInflight(state string) {
	c.mu.Lock()
	prev, prevID := c.inflight, c.reqID
	c.inflight, c.reqID = nil, ""
	c.mu.Unlock()

	if prev != nil {
		prev()
		if state != "" && prevID != "" {
			c.sendStatus(prevID, state)
		}
	}
}

func (c *conn) sendStatus(reqID, state string) {
	c.send(MsgStatus, StatusPayload{RequestID: reqID, State: state})
}

func (c *conn) sendError(reqID, msg string) {
	c.send(MsgError, ErrorPayload{RequestID: reqID, Message: msg})
}

func (c *conn) send(t MessageType, payload any) {
	env, err := envelope(t, payload)
	if err != nil {
		c.srv.log.Error().Err(err).Str("type", string(t)).Msg("marshal envelope")
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.srv.cfg.WriteTimeout > 0 {
		c.ws.SetWriteDeadline(time.Now().Add(c.srv.cfg.WriteTimeout))
	}
	if err := c.ws.WriteJSON(env); err != nil {
		c.srv.log.Debug().Err(err).Str("type", string(t)).Msg("overlay write failed")
	}
}
