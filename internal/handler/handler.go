package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Aadithya-J/code_nest/services/editor-service/internal/archive"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/db"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/models"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/service"
)

type ProjectService interface {
	CreateProject(ctx context.Context, name string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
}

type FileService interface {
	ListFiles(ctx context.Context, projectID string) ([]models.File, error)
	CreateFile(ctx context.Context, projectID, path string) (*models.File, error)
	UpdateFileContent(ctx context.Context, fileID string, content *string) error
	RenameFile(ctx context.Context, fileID, path string) error
	DeleteFile(ctx context.Context, fileID string) error
	ReplaceAllFiles(ctx context.Context, projectID string, files []models.FileEntry) error
}

type ExportService interface {
	ExportProjectZip(ctx context.Context, projectID string, w io.Writer) (int, error)
}

type Handler struct {
	projects ProjectService
	files    FileService
	exports  ExportService
	db       *gorm.DB
	log      zerolog.Logger
}

func New(projects ProjectService, files FileService, exports ExportService, db *gorm.DB, log zerolog.Logger) *Handler {
	return &Handler{projects: projects, files: files, exports: exports, db: db, log: log}
}

func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	requestID := c.GetString(requestIDKey)
	if requestID == "" {
		requestID = fmt.Sprintf("%.8s", uuid.New().String())
	}

	c.JSON(statusCode, gin.H{
		"error":      message,
		"request_id": requestID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"endpoint":   c.Request.URL.Path,
	})
}

// fail maps a service error onto a status code. Store failures are logged and
// answered with a generic message.
func (h *Handler) fail(c *gin.Context, err error) {
	var (
		validation *service.ValidationError
		notFound   *service.NotFoundError
		conflict   *service.ConflictError
		timeout    *service.TimeoutError
		aborted    *service.TransactionAbortedError
	)
	switch {
	case errors.As(err, &validation):
		h.errorResponse(c, http.StatusBadRequest, validation.Error())
	case errors.As(err, &notFound):
		h.errorResponse(c, http.StatusNotFound, notFound.Error())
	case errors.As(err, &aborted):
		h.logError(c, err)
		h.errorResponse(c, http.StatusInternalServerError, "Failed to replace files")
	case errors.As(err, &conflict):
		h.errorResponse(c, http.StatusConflict, conflict.Error())
	case errors.As(err, &timeout):
		h.logError(c, err)
		h.errorResponse(c, http.StatusGatewayTimeout, "Request timed out")
	default:
		h.logError(c, err)
		h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) logError(c *gin.Context, err error) {
	h.log.Error().
		Err(err).
		Str("request_id", c.GetString(requestIDKey)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("request failed")
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/db-test", h.DBTest)
	r.GET("/init-db", h.InitDB)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/projects", h.CreateProject)
	r.GET("/projects", h.ListProjects)
	r.GET("/projects/:projectId/files", h.ListFiles)
	r.POST("/projects/:projectId/files", h.ReplaceFiles)
	r.POST("/projects/:projectId/files/new", h.CreateFile)
	r.GET("/projects/:projectId/download", h.Download)

	r.PATCH("/files/:id", h.UpdateFile)
	r.PATCH("/files/:id/rename", h.RenameFile)
	r.DELETE("/files/:id", h.DeleteFile)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DBTest reports the store clock, proving the connection works.
func (h *Handler) DBTest(c *gin.Context) {
	now, err := db.Now(c.Request.Context(), h.db)
	if err != nil {
		h.logError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database connection failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "time": now})
}

// InitDB applies pending migrations. Safe to call repeatedly.
func (h *Handler) InitDB(c *gin.Context) {
	if err := db.Migrate(h.db.WithContext(c.Request.Context())); err != nil {
		h.logError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to initialize database"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) CreateProject(c *gin.Context) {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	project, err := h.projects.CreateProject(c.Request.Context(), body.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": project.ID, "name": project.Name})
}

func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.projects.ListProjects(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

type fileView struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (h *Handler) ListFiles(c *gin.Context) {
	files, err := h.files.ListFiles(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]fileView, len(files))
	for i, f := range files {
		out[i] = fileView{ID: f.ID, Path: f.Path, Content: f.Content}
	}
	c.JSON(http.StatusOK, out)
}

// ReplaceFiles swaps the whole file set of a project.
func (h *Handler) ReplaceFiles(c *gin.Context) {
	var body struct {
		Files *[]models.FileEntry `json:"files"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "files must be an array of {path, content}")
		return
	}
	if body.Files == nil {
		h.errorResponse(c, http.StatusBadRequest, "files must be an array")
		return
	}

	if err := h.files.ReplaceAllFiles(c.Request.Context(), c.Param("projectId"), *body.Files); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) CreateFile(c *gin.Context) {
	var body struct {
		Path string `json:"path"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	file, err := h.files.CreateFile(c.Request.Context(), c.Param("projectId"), body.Path)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, fileView{ID: file.ID, Path: file.Path, Content: file.Content})
}

func (h *Handler) UpdateFile(c *gin.Context) {
	var body struct {
		Content *string `json:"content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.files.UpdateFileContent(c.Request.Context(), c.Param("id"), body.Content); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) RenameFile(c *gin.Context) {
	var body struct {
		Path string `json:"path"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.files.RenameFile(c.Request.Context(), c.Param("id"), body.Path); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) DeleteFile(c *gin.Context) {
	if err := h.files.DeleteFile(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Download streams the project as a zip archive. Headers are committed with
// the first archive bytes; a failure before that still gets a JSON error, a
// failure after it truncates the response.
func (h *Handler) Download(c *gin.Context) {
	projectID := c.Param("projectId")
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": "project-" + projectID + ".zip",
	}))

	n, err := h.exports.ExportProjectZip(c.Request.Context(), projectID, flushWriter{c.Writer})
	if err == nil {
		return
	}

	var unsafe *archive.UnsafePathError
	event := h.log.Error()
	if errors.Is(err, context.Canceled) {
		event = h.log.Warn()
	}
	event.Err(err).
		Str("request_id", c.GetString(requestIDKey)).
		Str("project_id", projectID).
		Int("entries", n).
		Bool("unsafe_path", errors.As(err, &unsafe)).
		Msg("archive export failed")

	if c.Writer.Written() {
		c.Abort()
		return
	}
	c.Header("Content-Type", "")
	c.Header("Content-Disposition", "")
	var timeout *service.TimeoutError
	if errors.As(err, &timeout) {
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{"error": "Archive export timed out"})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to build project archive"})
}

// flushWriter pushes each write to the client instead of letting the server
// buffer the archive.
type flushWriter struct {
	w gin.ResponseWriter
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err == nil {
		f.w.Flush()
	}
	return n, err
}
