package api

import (
	"context"
	stderrors "errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/d66d666/SchMang-sub000/internal/config"
	"github.com/d66d666/SchMang-sub000/internal/importer"
	"github.com/d66d666/SchMang-sub000/internal/logger"
	"github.com/d66d666/SchMang-sub000/internal/model"
	"github.com/d66d666/SchMang-sub000/internal/storage"
	"github.com/d66d666/SchMang-sub000/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Importer interface {
	Import(ctx context.Context, filename string, data []byte, opts importer.Options) (*importer.Result, error)
}

type JobRepository interface {
	CreateImportJob(ctx context.Context, job *model.ImportJob) error
	GetImportJob(ctx context.Context, id string) (*model.ImportJob, error)
	UpdateImportJob(ctx context.Context, job *model.ImportJob) error
}

type Enqueuer interface {
	EnqueueImportJob(ctx context.Context, job model.ImportJobMessage) error
	Pending(ctx context.Context) (int64, error)
}

// RosterReader serves single roster entities, normally through the mirror.
type RosterReader interface {
	GetStudent(ctx context.Context, id string) (*model.Student, error)
	GetTeacher(ctx context.Context, id string) (*model.Teacher, error)
}

type Handler struct {
	importer Importer
	jobs     JobRepository
	producer Enqueuer
	storage  storage.Storage
	reader   RosterReader
	cfg      *config.Config
	log      zerolog.Logger
}

// NewHandler builds the API handler. A nil storage disables asynchronous jobs.
func NewHandler(
	cfg *config.Config,
	importer Importer,
	jobs JobRepository,
	producer Enqueuer,
	storage storage.Storage,
	reader RosterReader,
) *Handler {
	return &Handler{
		importer: importer,
		jobs:     jobs,
		producer: producer,
		storage:  storage,
		reader:   reader,
		cfg:      cfg,
		log:      logger.For("api"),
	}
}

// ImportRoster runs an import synchronously and answers with its summary.
func (h *Handler) ImportRoster(c *gin.Context) {
	upload, ok := h.readUpload(c)
	if !ok {
		return
	}

	result, err := h.importer.Import(c.Request.Context(), upload.filename, upload.data, importer.Options{
		Kind:        upload.kind,
		OnDuplicate: upload.policy,
	})
	if err != nil {
		h.writeImportError(c, upload, err)
		return
	}

	c.JSON(http.StatusOK, result.Response())
}

// CreateImportJob archives the upload and queues it for the ingestion worker.
func (h *Handler) CreateImportJob(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: errors.ErrStorageUnavailable.Error()})
		return
	}

	upload, ok := h.readUpload(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	job := &model.ImportJob{
		ID:          uuid.NewString(),
		Kind:        upload.kind,
		Filename:    upload.filename,
		OnDuplicate: string(upload.policy),
		Status:      model.JobStatusQueued,
	}
	job.S3Key = storage.RosterKey(h.cfg.Storage.S3.KeyPrefix, job.ID, upload.filename)
	log := h.log.With().Str("job_id", job.ID).Str("kind", string(job.Kind)).Logger()

	if err := h.storage.Put(ctx, job.S3Key, upload.data); err != nil {
		log.Error().Err(err).Msg("Failed to archive upload")
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to store uploaded file"})
		return
	}

	if err := h.jobs.CreateImportJob(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to create import job")
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to create import job"})
		return
	}

	msg := model.ImportJobMessage{
		JobID:       job.ID,
		Kind:        job.Kind,
		Filename:    job.Filename,
		S3Key:       job.S3Key,
		OnDuplicate: job.OnDuplicate,
	}
	if err := h.producer.EnqueueImportJob(ctx, msg); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue import job")
		message := "failed to queue import job"
		job.Status = model.JobStatusFailed
		job.Message = &message
		if uerr := h.jobs.UpdateImportJob(ctx, job); uerr != nil {
			log.Error().Err(uerr).Msg("Failed to mark import job failed")
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to queue import job"})
		return
	}

	log.Info().Str("s3_key", job.S3Key).Msg("Import job enqueued")
	c.JSON(http.StatusAccepted, job)
}

func (h *Handler) GetImportJob(c *gin.Context) {
	job, err := h.jobs.GetImportJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if stderrors.Is(err, errors.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Str("job_id", c.Param("id")).Msg("Failed to get import job")
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, job)
}

func (h *Handler) GetStudent(c *gin.Context) {
	student, err := h.reader.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h *Handler) GetTeacher(c *gin.Context) {
	teacher, err := h.reader.GetTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, teacher)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":       "healthy",
		"service":      h.cfg.App.Name,
		"version":      h.cfg.App.Version,
		"async_import": h.storage != nil,
	}

	if pending, err := h.producer.Pending(c.Request.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Failed to read import queue length")
	} else {
		body["queue_pending"] = pending
	}

	c.JSON(http.StatusOK, body)
}

type upload struct {
	kind     model.ImportKind
	policy   model.DuplicatePolicy
	filename string
	data     []byte
}

// readUpload validates the path and form and reads the uploaded file. It
// writes the error response itself and reports whether the caller may go on.
func (h *Handler) readUpload(c *gin.Context) (*upload, bool) {
	kind, ok := model.ParseImportKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: errors.ErrUnknownImportKind.Error()})
		return nil, false
	}

	if limit := h.cfg.Import.MaxUploadBytes; limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{Error: "Uploaded file is too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Missing file field"})
		return nil, false
	}

	var policy model.DuplicatePolicy
	if raw := c.PostForm("on_duplicate"); raw != "" {
		p, ok := model.ParseDuplicatePolicy(raw)
		if !ok {
			verr := errors.ValidationError{Field: "on_duplicate", Value: raw, Message: "expected first or last"}
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: verr.Error()})
			return nil, false
		}
		policy = p
	}

	data, err := readFormFile(header)
	if err != nil {
		h.log.Error().Err(err).Str("filename", header.Filename).Msg("Failed to read upload")
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Failed to read uploaded file"})
		return nil, false
	}

	return &upload{kind: kind, policy: policy, filename: header.Filename, data: data}, true
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) writeImportError(c *gin.Context, u *upload, err error) {
	if errors.IsFatalImportError(err) {
		h.log.Warn().Err(err).Str("kind", string(u.kind)).Str("filename", u.filename).Msg("Import rejected")
		c.JSON(http.StatusUnprocessableEntity, model.ErrorResponse{Error: err.Error()})
		return
	}

	h.log.Error().Err(err).Str("kind", string(u.kind)).Str("filename", u.filename).Msg("Import failed")
	c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
}

func (h *Handler) writeLookupError(c *gin.Context, err error) {
	if stderrors.Is(err, errors.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: err.Error()})
		return
	}
	h.log.Error().Err(err).Str("id", c.Param("id")).Msg("Lookup failed")
	c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Internal server error"})
}
