package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/zenbanez/docuvoice-ai/internal/models"
	"github.com/zenbanez/docuvoice-ai/internal/providers/live"
	mongorepo "github.com/zenbanez/docuvoice-ai/internal/repositories/mongo"
	"github.com/zenbanez/docuvoice-ai/internal/utils"
	"github.com/zenbanez/docuvoice-ai/internal/voice"
)

type VoiceConfig struct {
	Model             string
	Voice             string
	RequireCredential bool
}

type VoiceService interface {
	// Attach binds a controller for the document to one client's devices. Only one client may
	// hold a document at a time.
	Attach(ctx context.Context, ownerID, documentID string, devices *voice.Devices, gate voice.CredentialGate, obs voice.Observer) (*VoiceLink, error)
	Get(ctx context.Context, ownerID, sessionID string) (*models.VoiceSession, []models.SessionEvent, error)
	ListByDocument(ctx context.Context, ownerID, documentID string, limit int64) ([]models.VoiceSession, error)
}

type voiceService struct {
	docs     DocumentService
	sessions mongorepo.VoiceSessionRepository
	events   mongorepo.SessionEventRepository
	provider live.Provider
	cfg      VoiceConfig
	log      logrus.FieldLogger

	mu     sync.Mutex
	active map[string]*VoiceLink // by document id
}

func NewVoiceService(docs DocumentService, sessions mongorepo.VoiceSessionRepository, events mongorepo.SessionEventRepository, provider live.Provider, cfg VoiceConfig, log logrus.FieldLogger) VoiceService {
	if cfg.Model == "" {
		cfg.Model = voice.DefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = voice.DefaultVoice
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &voiceService{
		docs:     docs,
		sessions: sessions,
		events:   events,
		provider: provider,
		cfg:      cfg,
		log:      log,
		active:   make(map[string]*VoiceLink),
	}
}

func (s *voiceService) Attach(ctx context.Context, ownerID, documentID string, devices *voice.Devices, gate voice.CredentialGate, obs voice.Observer) (*VoiceLink, error) {
	const op = "VoiceService.Attach"

	if devices == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "devices are required", nil)
	}
	doc, err := s.docs.Get(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.active[documentID]; busy {
		return nil, utils.E(utils.CodeConflict, op, "a voice session is already open for this document", nil)
	}

	link := &VoiceLink{
		svc:        s,
		ownerID:    ownerID,
		documentID: documentID,
		outer:      obs,
		log:        s.log.WithField("document_id", documentID),
		writes:     make(chan func(context.Context), 64),
		done:       make(chan struct{}),
	}
	link.ctrl = voice.NewController(s.provider, devices,
		voice.DocumentContext{Name: doc.Name, Summary: doc.Summary},
		voice.WithCredentialGate(gate),
		voice.WithRequireCredential(s.cfg.RequireCredential),
		voice.WithModel(s.cfg.Model, s.cfg.Voice),
		voice.WithObserver(link),
		voice.WithLogger(link.log),
	)
	s.active[documentID] = link
	go link.writer()
	return link, nil
}

func (s *voiceService) release(link *VoiceLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[link.documentID] == link {
		delete(s.active, link.documentID)
	}
}

func (s *voiceService) Get(ctx context.Context, ownerID, sessionID string) (*models.VoiceSession, []models.SessionEvent, error) {
	const op = "VoiceService.Get"

	if sessionID == "" {
		return nil, nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	sess, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	if sess.UserID != ownerID {
		return nil, nil, utils.E(utils.CodeNotFound, op, "session not found", nil)
	}
	evs, err := s.events.ListBySession(ctx, sessionID, 0)
	if err != nil {
		return nil, nil, utils.E(utils.CodeInternal, op, "failed to list session events", err)
	}
	return sess, evs, nil
}

func (s *voiceService) ListByDocument(ctx context.Context, ownerID, documentID string, limit int64) ([]models.VoiceSession, error) {
	const op = "VoiceService.ListByDocument"

	if _, err := s.docs.Get(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	rows, err := s.sessions.ListByDocument(ctx, documentID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list sessions", err)
	}
	return rows, nil
}

// VoiceLink is one client's hold on a document's voice controller. Every Start opens a new
// session record; records are written on a background goroutine.
type VoiceLink struct {
	svc        *voiceService
	ownerID    string
	documentID string
	ctrl       *voice.Controller
	outer      voice.Observer
	log        logrus.FieldLogger

	// startMu serializes Start so the active check and the record swap are one step.
	startMu sync.Mutex

	mu          sync.Mutex
	record      *models.VoiceSession
	historyBase int
	seq         atomic.Int64

	wmu       sync.Mutex
	closed    bool
	writes    chan func(context.Context)
	done      chan struct{}
	closeOnce sync.Once
}

func (l *VoiceLink) Controller() *voice.Controller { return l.ctrl }

// SessionID returns the current session record id, or "" before the first start.
func (l *VoiceLink) SessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.record == nil {
		return ""
	}
	return l.record.SessionID
}

// Start opens a new session record and starts the controller. A start while a session is
// still running or closing fails with voice.ErrSessionActive and leaves its record alone.
func (l *VoiceLink) Start(ctx context.Context) error {
	l.startMu.Lock()
	defer l.startMu.Unlock()

	if st := l.ctrl.State(); st.Active() || st == voice.StateClosing {
		return voice.ErrSessionActive
	}
	rec := &models.VoiceSession{
		SessionID:  uuid.NewString(),
		UserID:     l.ownerID,
		DocumentID: l.documentID,
		Model:      l.svc.cfg.Model,
		Voice:      l.svc.cfg.Voice,
		Status:     models.VoiceConnecting,
		StartedAt:  time.Now().UTC(),
	}

	l.mu.Lock()
	l.record = rec
	l.historyBase = len(l.ctrl.Snapshot().History)
	l.seq.Store(0)
	l.mu.Unlock()

	recCopy := *rec
	l.enqueue(func(ctx context.Context) error { return l.svc.sessions.Create(ctx, &recCopy) })
	return l.ctrl.Start(ctx)
}

func (l *VoiceLink) Stop() { l.ctrl.Stop() }

// Close stops the controller, releases the document and flushes pending record writes.
func (l *VoiceLink) Close() error {
	l.closeOnce.Do(func() {
		l.ctrl.Stop()
		l.svc.release(l)

		l.wmu.Lock()
		l.closed = true
		close(l.writes)
		l.wmu.Unlock()

		select {
		case <-l.done:
		case <-time.After(5 * time.Second):
			l.log.Warn("session record writes did not drain")
		}
	})
	return nil
}

func (l *VoiceLink) OnState(state voice.State, message string) {
	l.mu.Lock()
	rec := l.record
	l.mu.Unlock()

	if rec != nil {
		ev := &models.SessionEvent{
			SessionID: rec.SessionID,
			Seq:       l.seq.Add(1),
			State:     state.String(),
			Message:   message,
		}
		l.enqueue(func(ctx context.Context) error { return l.svc.events.Append(ctx, ev) })

		switch state {
		case voice.StateOpen:
			id := rec.SessionID
			l.enqueue(func(ctx context.Context) error {
				return l.svc.sessions.SetStatus(ctx, id, models.VoiceActive, "")
			})
		case voice.StateClosed:
			l.finish(rec, message)
		}
	}

	if l.outer != nil {
		l.outer.OnState(state, message)
	}
}

func (l *VoiceLink) finish(rec *models.VoiceSession, message string) {
	snap := l.ctrl.Snapshot()
	now := time.Now().UTC()

	l.mu.Lock()
	base := l.historyBase
	l.mu.Unlock()

	end := *rec
	end.EndedAt = &now
	end.DurationSeconds = int64(now.Sub(rec.StartedAt).Seconds())
	end.Status = models.VoiceEnded
	if message != "" {
		end.Status = models.VoiceFailed
		end.Error = message
	}
	end.Stats = models.VoiceSessionStats{
		BlocksSent:      snap.BlocksSent,
		FragmentsPlayed: snap.FragmentsPlayed,
		Interruptions:   snap.Interruptions,
	}
	if base <= len(snap.History) {
		for _, t := range snap.History[base:] {
			end.Turns = append(end.Turns, models.VoiceTurn{User: t.User, AI: t.AI})
		}
	}
	l.enqueue(func(ctx context.Context) error { return l.svc.sessions.End(ctx, &end) })
}

func (l *VoiceLink) OnTranscript(input, output string) {
	if l.outer != nil {
		l.outer.OnTranscript(input, output)
	}
}

func (l *VoiceLink) OnTurn(turn voice.Turn) {
	if l.outer != nil {
		l.outer.OnTurn(turn)
	}
}

func (l *VoiceLink) enqueue(fn func(ctx context.Context) error) {
	l.wmu.Lock()
	defer l.wmu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.writes <- func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			l.log.WithError(err).Warn("session record write failed")
		}
	}:
	default:
		l.log.Warn("session record queue full; write dropped")
	}
}

func (l *VoiceLink) writer() {
	defer close(l.done)
	for fn := range l.writes {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		fn(ctx)
		cancel()
	}
}
