// Package session binds one websocket connection to a client's running
// statement and verification slot
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ppiankov/livecheck/internal/aggregate"
	"github.com/ppiankov/livecheck/internal/model"
	"github.com/ppiankov/livecheck/internal/pipeline"
	"github.com/ppiankov/livecheck/internal/transcribe"
	"github.com/ppiankov/livecheck/internal/worker"
)

// ErrClosed is returned when sending on a closed session
var ErrClosed = errors.New("session closed")

// Launcher starts a verification run in a client's slot
type Launcher interface {
	Launch(slot *pipeline.Slot, claim string)
}

// Deps are the shared components every session uses
type Deps struct {
	Config      model.ServerConfig
	Transcriber transcribe.Transcriber
	Aggregator  *aggregate.Aggregator
	Pipeline    Launcher
	Limiter     *worker.Limiter // per-client inbound segment limit, optional
}

// Session is one connected client
type Session struct {
	id     string
	conn   *websocket.Conn
	deps   Deps
	logger *zap.Logger

	slot   *pipeline.Slot
	outbox chan model.Event
	inbox  chan segment

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

func newSession(id string, conn *websocket.Conn, deps Deps, logger *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     id,
		conn:   conn,
		deps:   deps,
		logger: logger.With(zap.String("client_id", id)),
		outbox: make(chan model.Event, deps.Config.OutboxSize),
		inbox:  make(chan segment, 16),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.slot = pipeline.NewSlot(func(ev model.Event) {
		_ = s.Send(ev)
	})
	return s
}

// ID returns the client identifier
func (s *Session) ID() string {
	return s.id
}

// Done is closed once the session is fully torn down
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Send queues ev for the client. It blocks while the outbox is full and
// fails once the session is closed.
func (s *Session) Send(ev model.Event) error {
	select {
	case <-s.ctx.Done():
		return ErrClosed
	default:
	}

	select {
	case s.outbox <- ev:
		return nil
	case <-s.ctx.Done():
		return ErrClosed
	}
}

// Close stops delivery; the write pump then says goodbye and closes the
// connection. In-flight verification runs finish in the background and
// their events are dropped.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.slot.Close()
	})
}

// run drives the session until the connection ends, then releases the
// client's state
func (s *Session) run() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writePump()
	}()
	go func() {
		defer wg.Done()
		s.ingestLoop()
	}()

	s.readPump()
	s.Close()
	wg.Wait()

	s.deps.Aggregator.Release(s.id)
	if s.deps.Limiter != nil {
		s.deps.Limiter.Forget(s.id)
	}
	close(s.done)
	s.logger.Info("session closed",
		zap.Int("dropped_events", s.slot.Dropped()),
		zap.Int("runs_in_flight", s.slot.Active()))
}

// readPump reads frames until the connection fails or the session closes.
// It is the only reader of the connection.
func (s *Session) readPump() {
	cfg := s.deps.Config
	s.conn.SetReadLimit(cfg.MaxAudioBytes*2 + 1024)
	_ = s.conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	})

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("read failed", zap.Error(err))
			} else {
				s.logger.Debug("read ended", zap.Error(err))
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))

		var seg segment
		switch msgType {
		case websocket.BinaryMessage:
			seg = segment{audio: data}
		case websocket.TextMessage:
			seg, err = parseText(data)
			if err != nil {
				s.sendError(err.Error())
				continue
			}
		default:
			continue
		}

		if !seg.isText && int64(len(seg.audio)) > cfg.MaxAudioBytes {
			s.sendError("audio segment too large")
			continue
		}
		if s.deps.Limiter != nil && !s.deps.Limiter.AllowKey(s.id) {
			s.sendError("too many segments, slow down")
			continue
		}

		select {
		case s.inbox <- seg:
		case <-s.ctx.Done():
			return
		default:
			s.sendError("transcription backlog full, segment dropped")
		}
	}
}

// ingestLoop handles segments one at a time, in arrival order
func (s *Session) ingestLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case seg := <-s.inbox:
			s.ingest(seg)
		}
	}
}

// ingest transcribes a segment, feeds it to the aggregator and launches a
// verification run when the running statement completes
func (s *Session) ingest(seg segment) {
	text := seg.text
	if !seg.isText {
		var err error
		text, err = s.deps.Transcriber.Transcribe(s.ctx, s.id, seg.audio)
		if err != nil {
			// A failed transcription is an empty fragment
			s.logger.Warn("transcription failed", zap.Error(err))
			return
		}
	}
	text = aggregate.Join("", text)
	if text == "" {
		return
	}
	if s.Send(model.NewTranscription(text)) != nil {
		return
	}

	decision := s.deps.Aggregator.Ingest(s.ctx, s.id, text)
	if !decision.Trigger {
		return
	}

	if running := s.slot.Active(); running > 0 {
		s.logger.Info("claim detected, superseding running verification",
			zap.String("claim", decision.Claim), zap.Int("runs_in_flight", running))
	} else {
		s.logger.Info("claim detected", zap.String("claim", decision.Claim))
	}
	s.deps.Pipeline.Launch(s.slot, decision.Claim)
}

// writePump serialises queued events to the connection and keeps it alive
// with pings. It is the only writer of the connection.
func (s *Session) writePump() {
	cfg := s.deps.Config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		s.Close()
		_ = s.conn.Close()
	}()

	for {
		select {
		case ev := <-s.outbox:
			payload, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("encode event", zap.String("type", string(ev.Kind())), zap.Error(err))
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Warn("write failed", zap.Error(err))
				return
			}
			s.logger.Debug("event sent", zap.String("type", string(ev.Kind())))
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Warn("ping failed", zap.Error(err))
				return
			}
		case <-s.ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Session) sendError(msg string) {
	s.logger.Warn("inbound rejected", zap.String("reason", msg))
	_ = s.Send(model.NewError(msg))
}
