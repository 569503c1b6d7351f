package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/sherbini/taratil/internal/attempts"
	"github.com/sherbini/taratil/internal/observe"
	"github.com/sherbini/taratil/internal/session"
	"github.com/sherbini/taratil/internal/verse"
	speechws "github.com/sherbini/taratil/pkg/provider/speech/wsjson"
)

// clientMessage is the envelope for all client-to-server practice messages.
type clientMessage struct {
	// Type is one of "set_verse", "start", "stop", "abort", "speech".
	Type string `json:"type"`

	// VerseID selects the verse for set_verse.
	VerseID string `json:"verse_id,omitempty"`

	// Speech carries a recognition event for speech messages.
	Speech *speechws.Message `json:"speech,omitempty"`
}

// serverEvent is the envelope for server-to-client session notifications.
// Recognition commands ([speechws.Command]) share the connection and are
// distinguished by their type field.
type serverEvent struct {
	Type       string     `json:"type"` // "session" or "error"
	Event      string     `json:"event,omitempty"`
	Language   string     `json:"language,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	Category   string     `json:"category,omitempty"`
	Transcript string     `json:"transcript,omitempty"`
	Result     *resultDTO `json:"result,omitempty"`
	VerseID    string     `json:"verse_id,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// practiceState carries the selected verse and active language between the
// read loop and the event pump goroutine.
type practiceState struct {
	mu       sync.Mutex
	verseID  string
	language string
}

func (p *practiceState) setVerse(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verseID = id
}

func (p *practiceState) setLanguage(lang string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.language = lang
}

func (p *practiceState) snapshot() (verseID, language string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.verseID, p.language
}

// wsWriter serialises writes to a WebSocket connection. Session events and
// recognition commands are produced by different goroutines but
// coder/websocket permits only one concurrent writer.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) write(ctx context.Context, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return wsjson.Write(ctx, w.conn, v)
}

// handlePractice serves GET /ws/practice. Each connection owns one
// recognition session controller; the client drives it with control
// messages and supplies recognition events from its local recogniser.
func (s *Server) handlePractice(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	log := observe.Logger(ctx)
	writer := &wsWriter{conn: conn}
	rec := speechws.NewRecognizerWithSender(writer.write)
	ctrl := session.NewController(rec, s.scorer, session.RealClock(), s.sessionCfg)
	state := &practiceState{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.pumpSessionEvents(ctx, writer, ctrl, state)
	}()

	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			log.Debug("practice connection closed", "err", err)
			break
		}
		s.dispatchClientMessage(ctx, writer, rec, ctrl, state, msg)
	}

	// The client is gone: tear the session down and release the event pump.
	rec.Close()
	_ = ctrl.Abort()
	cancel()
	<-done
	conn.Close(websocket.StatusNormalClosure, "")
}

// dispatchClientMessage applies one control message to the session.
func (s *Server) dispatchClientMessage(ctx context.Context, writer *wsWriter, rec *speechws.Recognizer, ctrl *session.Controller, state *practiceState, msg clientMessage) {
	log := observe.Logger(ctx)

	switch msg.Type {
	case "set_verse":
		v, err := s.verses.Get(ctx, msg.VerseID)
		if err != nil {
			if !errors.Is(err, verse.ErrNotFound) {
				log.Error("get verse failed", "verse", msg.VerseID, "err", err)
			}
			s.writeEvent(ctx, writer, serverEvent{Type: "error", Error: "verse not found"})
			return
		}
		ctrl.SetVerse(v.Text)
		state.setVerse(v.ID)
		s.writeEvent(ctx, writer, serverEvent{Type: "session", Event: "verse_set", VerseID: v.ID})

	case "start":
		if err := ctrl.Start(ctx); err != nil {
			log.Warn("session start failed", "err", err)
			s.writeEvent(ctx, writer, serverEvent{Type: "error", Error: err.Error()})
			return
		}
		s.metrics.SessionsStarted.Add(ctx, 1)

	case "stop":
		if err := ctrl.Stop(); err != nil {
			s.writeEvent(ctx, writer, serverEvent{Type: "error", Error: err.Error()})
		}

	case "abort":
		if err := ctrl.Abort(); err != nil {
			s.writeEvent(ctx, writer, serverEvent{Type: "error", Error: err.Error()})
		}

	case "speech":
		if msg.Speech != nil {
			rec.Deliver(*msg.Speech)
		}

	default:
		s.writeEvent(ctx, writer, serverEvent{Type: "error", Error: "unknown message type"})
	}
}

// pumpSessionEvents forwards controller events to the client and records
// session metrics. It returns when ctx is cancelled.
func (s *Server) pumpSessionEvents(ctx context.Context, writer *wsWriter, ctrl *session.Controller, state *practiceState) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ctrl.Events():
			s.recordSessionMetrics(ctx, ev)
			s.recordAttempt(ctx, ev, state)
			if !s.writeEvent(ctx, writer, toServerEvent(ev)) {
				return
			}
		}
	}
}

// recordAttempt appends scored events to the attempt log, when one is
// configured.
func (s *Server) recordAttempt(ctx context.Context, ev session.Event, state *practiceState) {
	switch ev.Kind {
	case session.EventStarted, session.EventLanguageChanged:
		state.setLanguage(ev.Language)
	case session.EventScored:
		if s.attempts == nil || ev.Result == nil {
			return
		}
		verseID, language := state.snapshot()
		err := s.attempts.Append(attempts.Record{
			VerseID:        verseID,
			Language:       language,
			Transcript:     ev.Transcript,
			Score:          ev.Result.Score,
			Classification: string(ev.Result.Classification),
			Passed:         ev.Result.Passed,
		})
		if err != nil {
			observe.Logger(ctx).Warn("recording attempt failed", "err", err)
		}
	}
}

// recordSessionMetrics updates instruments for one session event.
func (s *Server) recordSessionMetrics(ctx context.Context, ev session.Event) {
	switch ev.Kind {
	case session.EventStarted:
		s.metrics.ActiveSessions.Add(ctx, 1)
	case session.EventEnded:
		s.metrics.ActiveSessions.Add(ctx, -1)
	case session.EventTimeout:
		s.metrics.RecordSessionTimeout(ctx, string(ev.Timeout))
	case session.EventScored:
		if ev.Result != nil {
			s.metrics.RecordComparison(ctx, ev.Result.Score, string(ev.Result.Classification), ev.Result.Passed)
		}
	case session.EventError:
		s.metrics.RecordProviderError(ctx, "speech", string(ev.Category))
	}
}

// writeEvent sends one event, reporting false when the connection is gone.
func (s *Server) writeEvent(ctx context.Context, writer *wsWriter, ev serverEvent) bool {
	if err := writer.write(ctx, ev); err != nil {
		observe.Logger(ctx).Debug("writing session event failed", "err", err)
		return false
	}
	return true
}

// toServerEvent converts a controller event to its wire shape.
func toServerEvent(ev session.Event) serverEvent {
	out := serverEvent{
		Type:       "session",
		Event:      string(ev.Kind),
		Language:   ev.Language,
		Category:   string(ev.Category),
		Transcript: ev.Transcript,
	}
	switch ev.Kind {
	case session.EventEnded:
		out.Reason = string(ev.End)
	case session.EventTimeout:
		out.Reason = string(ev.Timeout)
	}
	if ev.Result != nil {
		out.Result = toResultDTO(*ev.Result)
	}
	return out
}
