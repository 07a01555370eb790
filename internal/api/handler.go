package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"gradebook-engine/internal/analytics"
	"gradebook-engine/internal/config"
	"gradebook-engine/internal/gradebook"
	"gradebook-engine/internal/grading"
	"gradebook-engine/internal/logger"
	"gradebook-engine/internal/model"
	"gradebook-engine/internal/reconcile"
	"gradebook-engine/internal/storage"
	"gradebook-engine/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// JobQueue accepts linked-sheet import jobs.
type JobQueue interface {
	EnqueueImportJob(ctx context.Context, job *model.ImportJob) error
}

type Handler struct {
	engine    *reconcile.Engine
	grades    *gradebook.Service
	analytics *analytics.Service
	jobs      JobQueue
	archive   storage.Storage
	cfg       *config.Config
	log       zerolog.Logger
}

// NewHandler wires the HTTP surface. jobs and archive may be nil: queued
// imports then answer 503 and uploads are not archived.
func NewHandler(
	cfg *config.Config,
	engine *reconcile.Engine,
	grades *gradebook.Service,
	jobs JobQueue,
	archive storage.Storage,
) *Handler {
	return &Handler{
		engine:    engine,
		grades:    grades,
		analytics: analytics.NewService(grades),
		jobs:      jobs,
		archive:   archive,
		cfg:       cfg,
		log:       logger.Component("api"),
	}
}

func (h *Handler) IngestSpreadsheet(c *gin.Context) {
	teacherID, err := strconv.ParseInt(c.PostForm("teacher_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid teacher ID"})
		return
	}
	upload, ok := h.readUpload(c, teacherID)
	if !ok {
		return
	}

	sheet, class, err := h.engine.IngestNewSpreadsheet(c.Request.Context(), upload, teacherID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"class":       class,
		"spreadsheet": sheet,
	})
}

func (h *Handler) UpdateSpreadsheet(c *gin.Context) {
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	mode := model.ImportMode(c.DefaultQuery("mode", string(model.ImportModeMerge)))
	if mode != model.ImportModeMerge && mode != model.ImportModeReplace {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be merge or replace"})
		return
	}
	teacherID, err := strconv.ParseInt(c.PostForm("teacher_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid teacher ID"})
		return
	}
	upload, ok := h.readUpload(c, teacherID)
	if !ok {
		return
	}

	sheet, err := h.engine.Reconcile(c.Request.Context(), mode, classID, upload, teacherID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sheet)
}

func (h *Handler) QueueImport(c *gin.Context) {
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	var req model.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Mode == "" {
		req.Mode = model.ImportModeMerge
	}
	if req.Mode != model.ImportModeMerge && req.Mode != model.ImportModeReplace {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be merge or replace"})
		return
	}
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Import queue is not configured"})
		return
	}

	job := &model.ImportJob{
		ClassID:   classID,
		TeacherID: req.TeacherID,
		ObjectKey: req.ObjectKey,
		FileName:  req.FileName,
		Mode:      req.Mode,
	}
	if err := h.jobs.EnqueueImportJob(c.Request.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue import job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue import job"})
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Int64("class_id", classID).
		Str("object_key", job.ObjectKey).
		Str("mode", string(job.Mode)).
		Msg("Import job enqueued")

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Import job queued successfully",
		"job":     job,
	})
}

func (h *Handler) SetVisibleColumns(c *gin.Context) {
	spreadsheetID, ok := paramID(c, "spreadsheet_id")
	if !ok {
		return
	}
	var req model.VisibleColumnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sheet, err := h.engine.SetStudentVisibleColumns(c.Request.Context(), spreadsheetID, req.Columns)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sheet)
}

func (h *Handler) UpdateGradingScheme(c *gin.Context) {
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	var req model.GradingSchemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	class, err := h.engine.UpdateGradingScheme(c.Request.Context(), classID, req.TeacherID, req.Scheme)
	if err != nil {
		var ve errors.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Error(), "field": ve.Field})
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, class)
}

func (h *Handler) GetClassGrades(c *gin.Context) {
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	grades, err := h.grades.ComputeClassGrades(c.Request.Context(), classID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"class_id": classID, "grades": grades})
}

func (h *Handler) GetRoster(c *gin.Context) {
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	rows, err := h.grades.ClassRosterTable(c.Request.Context(), classID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"class_id": classID, "roster": rows})
}

func (h *Handler) GetAnalytics(c *gin.Context) {
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	report, err := h.analytics.ClassAnalytics(c.Request.Context(), classID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) GetStudentGrade(c *gin.Context) {
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	studentID, ok := paramID(c, "student_id")
	if !ok {
		return
	}
	pct, err := h.grades.ComputeStudentGrade(c.Request.Context(), studentID, classID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"class_id":     classID,
		"student_id":   studentID,
		"percentage":   pct,
		"letter_grade": grading.LetterGrade(pct),
		"status":       grading.Standing(pct),
	})
}

func (h *Handler) GetStudentView(c *gin.Context) {
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	studentID, ok := paramID(c, "student_id")
	if !ok {
		return
	}
	view, err := h.grades.StudentView(c.Request.Context(), studentID, classID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// queueDepth is implemented by queues that can report their backlog.
type queueDepth interface {
	Depth(ctx context.Context) (pending, dead int64, err error)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	}
	if q, ok := h.jobs.(queueDepth); ok {
		pending, dead, err := q.Depth(c.Request.Context())
		if err != nil {
			h.log.Warn().Err(err).Msg("Import queue unreachable")
			body["status"] = "degraded"
		} else {
			body["import_queue"] = gin.H{"pending": pending, "dead": dead}
		}
	}
	c.JSON(http.StatusOK, body)
}

// readUpload reads the multipart "file" field and archives it when object
// storage is configured. It writes the error response itself.
func (h *Handler) readUpload(c *gin.Context, teacherID int64) (reconcile.Upload, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A file is required"})
		return reconcile.Upload{}, false
	}
	if limit := h.cfg.Server.MaxUploadBytes; limit > 0 && header.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File is too large"})
		return reconcile.Upload{}, false
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return reconcile.Upload{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return reconcile.Upload{}, false
	}

	if h.archive != nil {
		key := storage.ArchiveKey(teacherID, header.Filename)
		if err := h.archive.Upload(c.Request.Context(), key, bytes.NewReader(data)); err != nil {
			h.log.Warn().Err(err).Str("key", key).Msg("Failed to archive upload")
		} else {
			h.log.Debug().Str("key", key).Msg("Upload archived")
		}
	}

	return reconcile.Upload{FileName: header.Filename, Data: data}, true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}
