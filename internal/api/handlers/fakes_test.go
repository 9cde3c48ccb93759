package handlers

import (
	"context"
	"io"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/zenbanez/docuvoice-ai/internal/events"
	"github.com/zenbanez/docuvoice-ai/internal/models"
	"github.com/zenbanez/docuvoice-ai/internal/providers/live"
	"github.com/zenbanez/docuvoice-ai/internal/utils"
)

func init() { gin.SetMode(gin.TestMode) }

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

// asUser stands in for the auth middleware.
func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", id)
		c.Next()
	}
}

type fakeDocs struct {
	mu       sync.Mutex
	docs     map[string]*models.Document
	uploaded []byte
	upErr    error
}

func newFakeDocs(docs ...*models.Document) *fakeDocs {
	f := &fakeDocs{docs: map[string]*models.Document{}}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *fakeDocs) Upload(_ context.Context, owner, name string, r io.Reader) (*models.Document, error) {
	if f.upErr != nil {
		return nil, f.upErr
	}
	b, _ := io.ReadAll(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = b
	d := &models.Document{ID: "new", OwnerID: owner, Name: name, Status: models.DocumentSummarizing}
	f.docs[d.ID] = d
	return d, nil
}

func (f *fakeDocs) Get(_ context.Context, owner, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.OwnerID != owner {
		return nil, utils.E(utils.CodeNotFound, "DocumentService.Get", "document not found", nil)
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDocs) setStatus(id string, st models.DocumentStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[id].Status = st
}

func (f *fakeDocs) List(_ context.Context, owner string, _ int) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Document
	for _, d := range f.docs {
		if d.OwnerID == owner {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDocs) DownloadURL(ctx context.Context, owner, id string) (string, error) {
	if _, err := f.Get(ctx, owner, id); err != nil {
		return "", err
	}
	return "https://signed.example/" + id, nil
}

func (f *fakeDocs) Summarize(context.Context, string) (*models.Document, error) {
	return nil, utils.E(utils.CodeInternal, "DocumentService.Summarize", "not used", nil)
}

type fakeSubscriber struct {
	ch        chan events.Status
	cancelled bool
}

func (s *fakeSubscriber) Subscribe(context.Context, string) (<-chan events.Status, func(), error) {
	return s.ch, func() { s.cancelled = true }, nil
}

type fakeChats struct {
	chunks []string
	reply  *models.ChatMessage
	err    error
}

func (f *fakeChats) Send(_ context.Context, _, _, _ string, onChunk func(string)) (*models.ChatMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.chunks {
		onChunk(c)
	}
	return f.reply, nil
}

func (f *fakeChats) History(context.Context, string, string, int) ([]models.ChatMessage, error) {
	return []models.ChatMessage{{ID: "m1", Role: models.ChatRoleUser, Content: "hi"}}, nil
}

type fakeKeys struct {
	key string
}

func (k *fakeKeys) Select(_ context.Context, key string) error {
	if key == " " {
		return errInvalidKey
	}
	k.key = key
	return nil
}

func (k *fakeKeys) HasSelectedKey(context.Context) (bool, error) { return k.key != "", nil }

type memSessions struct {
	mu   sync.Mutex
	rows map[string]*models.VoiceSession
}

func (r *memSessions) Create(_ context.Context, s *models.VoiceSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.rows[s.SessionID] = &cp
	return nil
}

func (r *memSessions) GetBySessionID(_ context.Context, id string) (*models.VoiceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSessions) ListByDocument(_ context.Context, docID string, _ int64) ([]models.VoiceSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.VoiceSession
	for _, s := range r.rows {
		if s.DocumentID == docID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memSessions) SetStatus(_ context.Context, id string, st models.VoiceSessionStatus, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.rows[id]; ok {
		s.Status = st
	}
	return nil
}

func (r *memSessions) End(ctx context.Context, s *models.VoiceSession) error {
	return r.Create(ctx, s)
}

type memEvents struct {
	mu  sync.Mutex
	evs []models.SessionEvent
}

func (r *memEvents) Append(_ context.Context, e *models.SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, *e)
	return nil
}

func (r *memEvents) ListBySession(_ context.Context, id string, _ int64) ([]models.SessionEvent, error) {
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

// scriptedProvider opens streams that deliver a fixed script and then wait for Close.
type scriptedProvider struct {
	script []live.Message
}

func (p *scriptedProvider) Connect(context.Context, live.Config) (live.Stream, error) {
	ch := make(chan live.Message, len(p.script))
	for _, m := range p.script {
		ch <- m
	}
	return &scriptedStream{msgs: ch, closed: make(chan struct{})}, nil
}

type scriptedStream struct {
	msgs   chan live.Message
	once   sync.Once
	closed chan struct{}

	mu     sync.Mutex
	blocks int
}

func (s *scriptedStream) SendAudio(context.Context, []byte, string) error {
	select {
	case <-s.closed:
		return live.ErrClosed
	default:
	}
	s.mu.Lock()
	s.blocks++
	s.mu.Unlock()
	return nil
}

func (s *scriptedStream) Receive(ctx context.Context) (live.Message, error) {
	select {
	case <-s.closed:
		return live.Message{}, live.ErrClosed
	case <-ctx.Done():
		return live.Message{}, ctx.Err()
	case m := <-s.msgs:
		return m, nil
	}
}

func (s *scriptedStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
