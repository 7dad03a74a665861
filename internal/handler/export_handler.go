package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/etbur/eschool-portal/internal/models"
	"github.com/etbur/eschool-portal/internal/teacher"
	appErrors "github.com/etbur/eschool-portal/pkg/errors"
	"github.com/etbur/eschool-portal/pkg/export"
	"github.com/etbur/eschool-portal/pkg/jobs"
	"github.com/etbur/eschool-portal/pkg/response"
	"github.com/etbur/eschool-portal/pkg/storage"
)

type exportQueue interface {
	Enqueue(job jobs.Job) error
	Status(id string) (jobs.Result, bool)
}

type downloadSigner interface {
	Generate(id, filename string) (string, time.Time, error)
	Parse(token string) (id, filename string, err error)
}

// exportJob is the payload of a queued server-side export.
type exportJob struct {
	Provider *teacher.Provider
	Kind     teacher.ExportKind
	Filters  models.Filters
	Stored   string
}

// storedName keeps every job in its own folder so same-day exports never share a file.
func storedName(jobID, filename string) string {
	return filepath.Join(jobID, filename)
}

// ExportResponse tells the front end where the file will be available.
type ExportResponse struct {
	JobID       string    `json:"job_id"`
	StatusURL   string    `json:"status_url"`
	Filename    string    `json:"filename"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ExportHandler queues server exports and serves stored files through signed links.
type ExportHandler struct {
	queue   exportQueue
	signer  downloadSigner
	storage *storage.LocalStorage
	logger  *zap.Logger
}

// NewExportHandler builds a new handler.
func NewExportHandler(queue exportQueue, signer downloadSigner, storage *storage.LocalStorage, logger *zap.Logger) *ExportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{queue: queue, signer: signer, storage: storage, logger: logger}
}

// Create queues an export of the requested resource with the current filters.
func (h *ExportHandler) Create(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}
	kind := teacher.ExportKind(c.Param("resource"))
	if !kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown export %q", kind)))
		return
	}

	jobID := uuid.NewString()
	filename := provider.ExportFilename(kind)
	token, expiresAt, err := h.signer.Generate(jobID, filename)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link"))
		return
	}

	job := jobs.Job{
		ID:      jobID,
		Kind:    string(kind),
		Payload: exportJob{
			Provider: provider,
			Kind:     kind,
			Filters:  provider.State().Filters,
			Stored:   storedName(jobID, filename),
		},
	}
	if err := h.queue.Enqueue(job); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusServiceUnavailable, "export queue unavailable"))
		return
	}

	response.Accepted(c, ExportResponse{
		JobID:       jobID,
		StatusURL:   "/exports/" + jobID,
		Filename:    filename,
		DownloadURL: "/downloads/" + token,
		ExpiresAt:   expiresAt,
	})
}

// Process runs a queued export. It is the queue handler wired in main.
func (h *ExportHandler) Process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportJob)
	if !ok {
		return fmt.Errorf("unexpected export payload %T", job.Payload)
	}
	filename, err := payload.Provider.ExportAs(ctx, payload.Kind, payload.Filters, payload.Stored)
	if err != nil {
		if errors.Is(err, appErrors.ErrSessionClosed) {
			h.logger.Info("export dropped, session closed", zap.String("job_id", job.ID))
			return nil
		}
		return err
	}
	h.logger.Info("export stored", zap.String("job_id", job.ID), zap.String("filename", filename))
	return nil
}

// Status reports the progress of a queued export.
func (h *ExportHandler) Status(c *gin.Context) {
	result, ok := h.queue.Status(c.Param("id"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export not found"))
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Download serves the file of a finished job for a valid signed token. A failed job answers
// with its error; any other state is not ready.
func (h *ExportHandler) Download(c *gin.Context) {
	jobID, filename, err := h.signer.Parse(c.Param("token"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download link"))
		return
	}
	result, ok := h.queue.Status(jobID)
	if ok && result.Status == jobs.StatusFailed {
		response.Error(c, appErrors.New(appErrors.ErrHTTP.Code, http.StatusBadGateway, result.Error))
		return
	}
	if !ok || result.Status != jobs.StatusDone {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export not ready"))
		return
	}

	stored := storedName(jobID, filename)
	file, err := h.storage.Open(stored)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not ready"))
		return
	}
	_ = file.Close()
	c.FileAttachment(h.storage.Path(stored), filename)
}

// Render produces a CSV, PDF or XLSX file from data already loaded in the store.
func (h *ExportHandler) Render(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}
	source := teacher.RenderSource(c.DefaultQuery("source", string(teacher.RenderReports)))
	format := export.Format(c.DefaultQuery("format", string(export.FormatCSV)))

	out, err := provider.Render(source, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	c.Data(http.StatusOK, out.ContentType, out.Body)
}
