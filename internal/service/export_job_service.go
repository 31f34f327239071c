package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/models"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
	"github.com/noah-isme/timetable-engine/pkg/export"
	"github.com/noah-isme/timetable-engine/pkg/jobs"
	"github.com/noah-isme/timetable-engine/pkg/storage"
)

const (
	exportJobQueued  = "queued"
	exportJobRunning = "running"
	exportJobDone    = "done"
	exportJobFailed  = "failed"
)

// scheduleDataSource is the slice of TimetableService an export job needs
// to render a run's output without depending on the whole service.
type scheduleDataSource interface {
	Sections(ctx context.Context, runID string) ([]models.RunSection, error)
	Analysis(ctx context.Context, runID string) (*dto.RunAnalysisResponse, error)
}

type exportJobRecord struct {
	Status      string
	DownloadURL string
	Error       string
}

// ExportJobConfig configures the public download-link prefix an
// ExportJobService stamps into finished job status responses.
type ExportJobConfig struct {
	APIPrefix string
}

// ExportJobService renders run exports out of band for runs large enough
// that synchronous rendering would hold a request open too long. Rendered
// files are written through storage and served back via a signed,
// time-limited download token rather than a raw path.
type ExportJobService struct {
	source  scheduleDataSource
	storage *storage.LocalStorage
	signer  *storage.SignedURLSigner
	queue   *jobs.Queue
	prefix  string
	logger  *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*exportJobRecord
}

// NewExportJobService wires an async export pipeline. The returned
// service owns a worker queue that must be started with Start.
func NewExportJobService(source scheduleDataSource, store *storage.LocalStorage, signer *storage.SignedURLSigner, queueCfg jobs.QueueConfig, cfg ExportJobConfig, logger *zap.Logger) *ExportJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ExportJobService{
		source:  source,
		storage: store,
		signer:  signer,
		prefix:  cfg.APIPrefix,
		logger:  logger,
		jobs:    make(map[string]*exportJobRecord),
	}
	queueCfg.Logger = logger
	svc.queue = jobs.NewQueue("schedule-export", svc.render, queueCfg)
	return svc
}

// Start launches the underlying worker pool.
func (s *ExportJobService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains and stops the underlying worker pool.
func (s *ExportJobService) Stop() {
	s.queue.Stop()
}

// Request enqueues a render job and returns immediately with its id.
func (s *ExportJobService) Request(ctx context.Context, req dto.ExportJobRequest) (*dto.ExportJobResponse, error) {
	id := uuid.NewString()
	s.mu.Lock()
	s.jobs[id] = &exportJobRecord{Status: exportJobQueued}
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: id, Type: "render_export", Payload: req}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return &dto.ExportJobResponse{JobID: id, Status: exportJobQueued}, nil
}

// Status reports a job's current state and, once done, its download URL.
func (s *ExportJobService) Status(jobID string) (*dto.ExportJobStatusResponse, error) {
	s.mu.RLock()
	rec, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return &dto.ExportJobStatusResponse{
		JobID:       jobID,
		Status:      rec.Status,
		DownloadURL: rec.DownloadURL,
		Error:       rec.Error,
	}, nil
}

// Download resolves a signed token to the rendered file.
func (s *ExportJobService) Download(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file not found")
	}
	return file, nil
}

// CleanupExpired removes rendered exports older than ttl from storage.
func (s *ExportJobService) CleanupExpired(ttl time.Duration) {
	deleted, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("cleaned up expired exports", zap.Int("count", len(deleted)))
	}
}

func (s *ExportJobService) render(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.ExportJobRequest)
	if !ok {
		err := fmt.Errorf("unexpected export job payload type %T", job.Payload)
		s.setStatus(job.ID, exportJobFailed, "", err.Error())
		return err
	}
	s.setStatus(job.ID, exportJobRunning, "", "")

	var (
		data     []byte
		filename string
		err      error
	)
	switch req.Format {
	case "csv":
		var sections []models.RunSection
		if sections, err = s.source.Sections(ctx, req.RunID); err == nil {
			data, err = export.RunSectionsCSV(sections)
		}
		filename = fmt.Sprintf("run-%s.csv", req.RunID)
	case "pdf":
		var analysis *dto.RunAnalysisResponse
		if analysis, err = s.source.Analysis(ctx, req.RunID); err == nil {
			data, err = export.RunAnalysisPDF(req.RunID, analysis)
		}
		filename = fmt.Sprintf("run-%s.pdf", req.RunID)
	default:
		err = fmt.Errorf("unsupported export format %q", req.Format)
	}
	if err != nil {
		s.setStatus(job.ID, exportJobFailed, "", err.Error())
		return err
	}

	relPath := fmt.Sprintf("%s/%s", job.ID, filename)
	if _, err := s.storage.Save(relPath, data); err != nil {
		s.setStatus(job.ID, exportJobFailed, "", err.Error())
		return err
	}
	token, _, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		s.setStatus(job.ID, exportJobFailed, "", err.Error())
		return err
	}
	s.setStatus(job.ID, exportJobDone, fmt.Sprintf("%s/schedules/export/%s", s.prefix, token), "")
	return nil
}

func (s *ExportJobService) setStatus(id, status, downloadURL, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.jobs[id]; ok {
		rec.Status = status
		rec.DownloadURL = downloadURL
		rec.Error = errMsg
	}
}
