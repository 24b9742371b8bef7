package thumbs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/shareyt/backend/internal/models"
	"github.com/shareyt/backend/internal/repositories"
)

// ObjectStorage persists fetched thumbnails and returns a public location.
type ObjectStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// ArchiverConfig controls the concurrency characteristics of the archiver.
type ArchiverConfig struct {
	QueueSize    int
	Workers      int
	FetchTimeout time.Duration
}

// Archiver copies suggestion thumbnails into our own object store in the
// background, so a suggestion outlives the source CDN's cache policy. A
// failed fetch leaves the suggestion serving its original thumbnail URL.
type Archiver struct {
	client  *http.Client
	storage ObjectStorage
	updater repositories.ThumbnailUpdater
	logger  *slog.Logger

	fetchTimeout time.Duration

	jobs   chan archiveJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type archiveJob struct {
	suggestion models.VideoSuggestion
}

var errArchiverClosed = errors.New("thumbnail archiver closed")

// NewArchiver constructs a background worker pool that archives thumbnails.
func NewArchiver(client *http.Client, storage ObjectStorage, updater repositories.ThumbnailUpdater, cfg ArchiverConfig, logger *slog.Logger) *Archiver {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &Archiver{
		client:       client,
		storage:      storage,
		updater:      updater,
		logger:       logger,
		fetchTimeout: cfg.FetchTimeout,
		jobs:         make(chan archiveJob, cfg.QueueSize),
		ctx:          ctx,
		cancel:       cancel,
	}

	a.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go a.worker()
	}

	return a
}

// Enqueue schedules thumbnail archival for the supplied suggestion.
func (a *Archiver) Enqueue(ctx context.Context, suggestion models.VideoSuggestion) error {
	if strings.TrimSpace(suggestion.ThumbnailURL) == "" {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.ctx.Done():
		return errArchiverClosed
	default:
	}

	job := archiveJob{suggestion: suggestion}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.ctx.Done():
		return errArchiverClosed
	case a.jobs <- job:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (a *Archiver) Shutdown(ctx context.Context) error {
	a.once.Do(func() {
		a.cancel()
		close(a.jobs)
	})

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (a *Archiver) worker() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case job, ok := <-a.jobs:
			if !ok {
				return
			}
			a.handleJob(job)
		}
	}
}

func (a *Archiver) handleJob(job archiveJob) {
	if a.storage == nil || a.updater == nil {
		a.logger.Error("thumbnail archiver missing dependencies", "hasStorage", a.storage != nil, "hasUpdater", a.updater != nil)
		return
	}

	s := job.suggestion

	location, err := a.fetchAndStore(s)
	if err != nil {
		a.logger.Error("thumbnail archive failed", "suggestionId", s.ID, "url", s.ThumbnailURL, "error", err)
		a.recordFailure(s.ID)
		return
	}

	if err := a.recordSuccess(s.ID, location); err != nil {
		a.logger.Error("mark thumbnail ready", "suggestionId", s.ID, "error", err)
		a.recordFailure(s.ID)
	}
}

func (a *Archiver) fetchAndStore(s models.VideoSuggestion) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ThumbnailURL, nil)
	if err != nil {
		return "", fmt.Errorf("build thumbnail request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch thumbnail: unexpected status %d", resp.StatusCode)
	}

	location, err := a.storage.Save(ctx, objectKey(s), resp.Body)
	if err != nil {
		return "", fmt.Errorf("store thumbnail: %w", err)
	}

	return location, nil
}

func (a *Archiver) recordFailure(suggestionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.updater.MarkThumbnailFailed(ctx, suggestionID); err != nil {
		a.logger.Error("record thumbnail failure", "suggestionId", suggestionID, "error", err)
	}
}

func (a *Archiver) recordSuccess(suggestionID, location string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return a.updater.MarkThumbnailReady(ctx, suggestionID, location)
}

func objectKey(s models.VideoSuggestion) string {
	ext := path.Ext(s.ThumbnailURL)
	if idx := strings.IndexAny(ext, "?#"); idx >= 0 {
		ext = ext[:idx]
	}
	if ext == "" || len(ext) > 5 {
		ext = ".jpg"
	}
	return path.Join("thumbs", s.ID+ext)
}
