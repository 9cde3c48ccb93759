package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/zenbanez/docuvoice-ai/internal/models"
	"github.com/zenbanez/docuvoice-ai/internal/providers/live"
	"github.com/zenbanez/docuvoice-ai/internal/providers/llm"
	"github.com/zenbanez/docuvoice-ai/internal/utils"
	"github.com/zenbanez/docuvoice-ai/internal/voice"
)

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

func pdfBytes() []byte {
	return []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer\n%%EOF\n")
}

type fakeDocRepo struct {
	mu        sync.Mutex
	docs      map[string]*models.Document
	insertErr error
}

func newFakeDocRepo(docs ...*models.Document) *fakeDocRepo {
	r := &fakeDocRepo{docs: map[string]*models.Document{}}
	for _, d := range docs {
		r.docs[d.ID] = d
	}
	return r
}

func (r *fakeDocRepo) Insert(_ context.Context, d *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	cp := *d
	r.docs[d.ID] = &cp
	return nil
}

func (r *fakeDocRepo) GetByID(_ context.Context, id string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDocRepo) ListByOwner(_ context.Context, ownerID string, limit int) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Document
	for _, d := range r.docs {
		if d.OwnerID == ownerID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeDocRepo) ReadyBySHA(_ context.Context, sha string) (*models.Document, error) {
	return nil, utils.ErrNotFound
}

func (r *fakeDocRepo) SetStatus(_ context.Context, id string, status models.DocumentStatus, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return utils.ErrNotFound
	}
	d.Status, d.Error = status, errMsg
	return nil
}

func (r *fakeDocRepo) SetSummary(_ context.Context, id, summary string, sections []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return utils.ErrNotFound
	}
	d.Status, d.Summary, d.Sections, d.Error = models.DocumentReady, summary, sections, ""
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failUp  bool
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (s *fakeStore) Upload(_ context.Context, name, _ string, r io.Reader) (string, error) {
	if s.failUp {
		return "", errors.New("bucket unavailable")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.objects[name] = b
	s.mu.Unlock()
	return "gs://test/" + name, nil
}

func (s *fakeStore) Download(_ context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[name]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return bytes.Clone(b), nil
}

func (s *fakeStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.objects, name)
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) SignedGetURL(_ context.Context, name string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + name, nil
}

type fakeLLM struct {
	mu         sync.Mutex
	summary    string
	summaryErr error
	summarized int

	chunks  []string
	chatErr error
	system  string
	history []llm.Message
}

func (f *fakeLLM) Summarize(_ context.Context, doc []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summarized++
	return f.summary, f.summaryErr
}

func (f *fakeLLM) StreamChat(_ context.Context, system string, history []llm.Message, message string) (<-chan string, <-chan error) {
	f.mu.Lock()
	f.system, f.history = system, history
	chunks, chatErr := f.chunks, f.chatErr
	f.mu.Unlock()

	out := make(chan string, len(chunks))
	errs := make(chan error, 1)
	for _, c := range chunks {
		out <- c
	}
	if chatErr != nil {
		errs <- chatErr
	}
	close(out)
	close(errs)
	return out, errs
}

func (f *fakeLLM) Model() string { return "fake-model" }
func (f *fakeLLM) Close() error  { return nil }

type fakeQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *fakeQueue) Enqueue(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, id)
	return nil
}

type fakeChatRepo struct {
	mu   sync.Mutex
	rows []models.ChatMessage
}

func (r *fakeChatRepo) Insert(_ context.Context, m *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *m)
	return nil
}

func (r *fakeChatRepo) ListByDocument(_ context.Context, ownerID, documentID string, limit int) ([]models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range r.rows {
		if m.OwnerID == ownerID && m.DocumentID == documentID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakeSessionRepo struct {
	mu      sync.Mutex
	rows    map[string]*models.VoiceSession
	ended   []models.VoiceSession
	creates int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{rows: map[string]*models.VoiceSession{}}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *models.VoiceSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.rows[s.SessionID] = &cp
	r.creates++
	return nil
}

func (r *fakeSessionRepo) Creates() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

func (r *fakeSessionRepo) GetBySessionID(_ context.Context, id string) (*models.VoiceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) ListByDocument(_ context.Context, documentID string, _ int64) ([]models.VoiceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.VoiceSession
	for _, s := range r.rows {
		if s.DocumentID == documentID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) SetStatus(_ context.Context, id string, status models.VoiceSessionStatus, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.rows[id]; ok {
		s.Status = status
		if errMsg != "" {
			s.Error = errMsg
		}
	}
	return nil
}

func (r *fakeSessionRepo) End(_ context.Context, s *models.VoiceSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.rows[s.SessionID] = &cp
	r.ended = append(r.ended, cp)
	return nil
}

func (r *fakeSessionRepo) Ended() []models.VoiceSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.VoiceSession(nil), r.ended...)
}

type fakeEventRepo struct {
	mu  sync.Mutex
	evs []models.SessionEvent
}

func (r *fakeEventRepo) Append(_ context.Context, e *models.SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, *e)
	return nil
}

func (r *fakeEventRepo) ListBySession(_ context.Context, id string, _ int64) ([]models.SessionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SessionEvent
	for _, e := range r.evs {
		if e.SessionID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

// Live and device fakes for VoiceService.

type stubStream struct {
	once   sync.Once
	closed chan struct{}
}

func (s *stubStream) SendAudio(context.Context, []byte, string) error { return nil }

func (s *stubStream) Receive(ctx context.Context) (live.Message, error) {
	select {
	case <-s.closed:
		return live.Message{}, live.ErrClosed
	case <-ctx.Done():
		return live.Message{}, ctx.Err()
	}
}

func (s *stubStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

type stubProvider struct{ err error }

func (p *stubProvider) Connect(context.Context, live.Config) (live.Stream, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &stubStream{closed: make(chan struct{})}, nil
}

type silentMic struct{}

func (silentMic) Open(context.Context) (voice.SampleSource, error) { return &silentSource{done: make(chan struct{})}, nil }

type silentSource struct {
	once sync.Once
	done chan struct{}
}

func (s *silentSource) ReadSamples(ctx context.Context) ([]float32, error) {
	select {
	case <-s.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *silentSource) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

type nullOutput struct{}

func (nullOutput) Now() float64 { return 0 }
func (nullOutput) Play(*voice.AudioBuffer, float64, func()) (voice.Source, error) {
	return nullSource{}, nil
}

type nullSource struct{}

func (nullSource) Stop() error { return nil }

func testDevices() *voice.Devices {
	return voice.NewDevices(
		func() (voice.Microphone, error) { return silentMic{}, nil },
		func() (voice.Output, error) { return nullOutput{}, nil },
	)
}
