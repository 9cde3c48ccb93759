package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/zenbanez/docuvoice-ai/internal/cache"
	"github.com/zenbanez/docuvoice-ai/internal/models"
	"github.com/zenbanez/docuvoice-ai/internal/providers/llm"
	pgrepo "github.com/zenbanez/docuvoice-ai/internal/repositories/postgres"
	"github.com/zenbanez/docuvoice-ai/internal/storage"
	"github.com/zenbanez/docuvoice-ai/internal/utils"
)

const pdfMimeType = "application/pdf"

// SummaryQueue hands a document to the summary workers.
type SummaryQueue interface {
	Enqueue(ctx context.Context, documentID string) error
}

type DocumentService interface {
	Upload(ctx context.Context, ownerID, fileName string, r io.Reader) (*models.Document, error)
	Get(ctx context.Context, ownerID, id string) (*models.Document, error)
	List(ctx context.Context, ownerID string, limit int) ([]models.Document, error)
	DownloadURL(ctx context.Context, ownerID, id string) (string, error)
	// Summarize produces and stores the summary. It is run by the summary workers.
	Summarize(ctx context.Context, id string) (*models.Document, error)
}

type DocumentConfig struct {
	MaxBytes int64
	CacheTTL time.Duration
	URLTTL   time.Duration
}

type documentService struct {
	docs  pgrepo.DocumentRepository
	store storage.Store
	cache cache.Cache
	llm   llm.Provider
	queue SummaryQueue
	cfg   DocumentConfig
	log   logrus.FieldLogger
}

func NewDocumentService(docs pgrepo.DocumentRepository, store storage.Store, c cache.Cache, provider llm.Provider, queue SummaryQueue, cfg DocumentConfig, log logrus.FieldLogger) DocumentService {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 20 << 20
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 7 * 24 * time.Hour
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = 15 * time.Minute
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &documentService{docs: docs, store: store, cache: c, llm: provider, queue: queue, cfg: cfg, log: log}
}

func (s *documentService) Upload(ctx context.Context, ownerID, fileName string, r io.Reader) (*models.Document, error) {
	const op = "DocumentService.Upload"

	if ownerID == "" || r == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "owner and file are required", nil)
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if !strings.EqualFold(path.Ext(name), ".pdf") {
		return nil, utils.E(utils.CodeInvalidArgument, op, "only .pdf is allowed", nil)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxBytes+1))
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "failed to read upload", err)
	}
	if len(data) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "file is empty", nil)
	}
	if int64(len(data)) > s.cfg.MaxBytes {
		return nil, utils.E(utils.CodeTooLarge, op, "file too large", nil)
	}
	if ct := http.DetectContentType(data); ct != pdfMimeType {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid content type (must be pdf)", nil)
	}

	sum := sha256.Sum256(data)
	id := uuid.NewString()
	objectName := "documents/" + ownerID + "/" + id + ".pdf"

	if _, err := s.store.Upload(ctx, objectName, pdfMimeType, bytes.NewReader(data)); err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to upload file", err)
	}

	doc := &models.Document{
		ID:         id,
		OwnerID:    ownerID,
		Name:       name,
		ObjectPath: objectName,
		Size:       int64(len(data)),
		MimeType:   pdfMimeType,
		SHA256:     hex.EncodeToString(sum[:]),
		Status:     models.DocumentSummarizing,
	}
	if err := s.docs.Insert(ctx, doc); err != nil {
		if derr := s.store.Delete(ctx, objectName); derr != nil {
			s.log.WithError(derr).WithField("object", objectName).Warn("remove orphaned upload")
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to persist document", err)
	}

	if err := s.queue.Enqueue(ctx, doc.ID); err != nil {
		s.log.WithError(err).WithField("document_id", doc.ID).Error("enqueue summary")
		_ = s.docs.SetStatus(ctx, doc.ID, models.DocumentFailed, "failed to queue summary")
		return nil, utils.E(utils.CodeUnavailable, op, "failed to queue summary", err)
	}
	return doc, nil
}

func (s *documentService) Get(ctx context.Context, ownerID, id string) (*models.Document, error) {
	const op = "DocumentService.Get"

	if ownerID == "" || id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "owner and document id are required", nil)
	}
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "document not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get document", err)
	}
	if doc.OwnerID != ownerID {
		return nil, utils.E(utils.CodeNotFound, op, "document not found", nil)
	}
	return doc, nil
}

func (s *documentService) List(ctx context.Context, ownerID string, limit int) ([]models.Document, error) {
	const op = "DocumentService.List"

	if ownerID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "owner is required", nil)
	}
	rows, err := s.docs.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list documents", err)
	}
	return rows, nil
}

func (s *documentService) DownloadURL(ctx context.Context, ownerID, id string) (string, error) {
	const op = "DocumentService.DownloadURL"

	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return "", err
	}
	url, err := s.store.SignedGetURL(ctx, doc.ObjectPath, s.cfg.URLTTL)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "failed to sign download url", err)
	}
	return url, nil
}

type cachedSummary struct {
	Summary  string   `json:"summary"`
	Sections []string `json:"sections"`
}

func summaryCacheKey(sha string) string { return "summary:" + sha }

func (s *documentService) Summarize(ctx context.Context, id string) (*models.Document, error) {
	const op = "DocumentService.Summarize"

	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "document not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get document", err)
	}
	log := s.log.WithFields(logrus.Fields{"document_id": doc.ID, "sha256": doc.SHA256})

	var cs cachedSummary
	hit, err := s.cache.GetJSON(ctx, summaryCacheKey(doc.SHA256), &cs)
	if err != nil {
		log.WithError(err).Warn("summary cache read")
	}

	if !hit || cs.Summary == "" {
		data, err := s.store.Download(ctx, doc.ObjectPath)
		if err != nil {
			s.fail(ctx, doc.ID, "failed to read document")
			return nil, utils.E(utils.CodeUnavailable, op, "failed to read document", err)
		}

		start := time.Now()
		summary, err := s.llm.Summarize(ctx, data, doc.MimeType)
		if err != nil {
			s.fail(ctx, doc.ID, "failed to generate summary")
			return nil, utils.E(utils.CodeUnavailable, op, "failed to generate summary", err)
		}
		log.WithField("latency_ms", time.Since(start).Milliseconds()).Info("summary generated")

		cs = cachedSummary{Summary: summary, Sections: ExtractSections(summary)}
		if err := s.cache.SetJSON(ctx, summaryCacheKey(doc.SHA256), cs, s.cfg.CacheTTL); err != nil {
			log.WithError(err).Warn("summary cache write")
		}
	} else {
		log.Debug("summary cache hit")
	}

	if err := s.docs.SetSummary(ctx, doc.ID, cs.Summary, cs.Sections); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store summary", err)
	}
	doc.Status = models.DocumentReady
	doc.Summary = cs.Summary
	doc.Sections = cs.Sections
	doc.Error = ""
	return doc, nil
}

func (s *documentService) fail(ctx context.Context, id, msg string) {
	if err := s.docs.SetStatus(ctx, id, models.DocumentFailed, msg); err != nil {
		s.log.WithError(err).WithField("document_id", id).Error("mark document failed")
	}
}

// ExtractSections returns the headings of a Markdown summary: ATX headings and lines that are
// entirely bold.
func ExtractSections(markdown string) []string {
	var out []string
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		var title string
		switch {
		case strings.HasPrefix(line, "#"):
			title = strings.TrimSpace(strings.TrimLeft(line, "#"))
		case strings.HasPrefix(line, "**"):
			bold := strings.TrimSuffix(line, ":")
			if len(bold) > 4 && strings.HasSuffix(bold, "**") && !strings.Contains(bold[2:len(bold)-2], "**") {
				title = bold[2 : len(bold)-2]
			}
		}
		title = strings.Trim(strings.TrimSpace(title), "*:")
		if title != "" {
			out = append(out, title)
		}
	}
	return out
}
