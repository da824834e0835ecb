package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/dmitrijs2005/filegroups/internal/common"
	"github.com/dmitrijs2005/filegroups/internal/server/models"
	"github.com/dmitrijs2005/filegroups/internal/server/services"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

type renameRequest struct {
	Name string `json:"name" binding:"required"`
}

type renameResponse struct {
	Name string `json:"name"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) writeMetrics(c *gin.Context) {
	c.Header("Content-Type", "text/plain; version=0.0.4")
	s.metrics.WritePrometheus(c.Writer)
}

// readPart loads one uploaded part, enforcing MaxUploadSize. A missing or
// generic content type is replaced by one sniffed from the payload.
func (s *Server) readPart(h *multipart.FileHeader) (services.UploadFile, error) {
	if s.opts.MaxUploadSize > 0 && h.Size > s.opts.MaxUploadSize {
		return services.UploadFile{}, errTooLarge(h.Filename, s.opts.MaxUploadSize)
	}

	f, err := h.Open()
	if err != nil {
		return services.UploadFile{}, fmt.Errorf("open part %s: %w", h.Filename, err)
	}
	defer f.Close()

	var r io.Reader = f
	if s.opts.MaxUploadSize > 0 {
		r = io.LimitReader(f, s.opts.MaxUploadSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return services.UploadFile{}, fmt.Errorf("read part %s: %w", h.Filename, err)
	}
	if s.opts.MaxUploadSize > 0 && int64(len(data)) > s.opts.MaxUploadSize {
		return services.UploadFile{}, errTooLarge(h.Filename, s.opts.MaxUploadSize)
	}

	typ := h.Header.Get("Content-Type")
	if typ == "" || typ == "application/octet-stream" {
		typ = mimetype.Detect(data).String()
	}

	return services.UploadFile{Name: h.Filename, Type: typ, Size: int64(len(data)), Data: data}, nil
}

type tooLargeError struct {
	name  string
	limit int64
}

func (e *tooLargeError) Error() string {
	return fmt.Sprintf("file %s exceeds %d bytes", e.name, e.limit)
}

func errTooLarge(name string, limit int64) error {
	return &tooLargeError{name: name, limit: limit}
}

// upload stores the parts in order. On failure the files stored so far are
// returned along with the error.
func (s *Server) upload(c *gin.Context, parts []*multipart.FileHeader) ([]models.FileMeta, error) {
	ctx := c.Request.Context()
	metas := make([]models.FileMeta, 0, len(parts))
	for _, h := range parts {
		f, err := s.readPart(h)
		if err != nil {
			return metas, err
		}
		id, err := s.files.Upload(ctx, f)
		if err != nil {
			return metas, err
		}
		s.metrics.GetOrCreateCounter("files_uploaded_total").Inc()
		s.metrics.GetOrCreateCounter("files_uploaded_bytes_total").Add(len(f.Data))
		metas = append(metas, models.FileMeta{ID: id, Name: f.Name, Size: f.Size, Type: f.Type})
	}
	return metas, nil
}

// discard removes blobs stored by a request that failed afterwards. It
// still runs when the request context is done.
func (s *Server) discard(ctx context.Context, metas []models.FileMeta) {
	ctx = context.WithoutCancel(ctx)
	for _, m := range metas {
		if err := s.files.Delete(ctx, m.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "orphaned upload", "id", m.ID, "error", err)
			continue
		}
		s.metrics.GetOrCreateCounter("files_discarded_total").Inc()
	}
}

func (s *Server) failUpload(c *gin.Context, err error) {
	var tl *tooLargeError
	if errors.As(err, &tl) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   http.StatusText(http.StatusRequestEntityTooLarge),
			Message: tl.Error(),
		})
		return
	}
	s.fail(c, err)
}

func (s *Server) uploadFile(c *gin.Context) {
	h, err := c.FormFile("file")
	if err != nil {
		s.badRequest(c, `multipart field "file" is required`)
		return
	}

	metas, err := s.upload(c, []*multipart.FileHeader{h})
	if err != nil {
		s.failUpload(c, err)
		return
	}
	c.JSON(http.StatusCreated, metas[0])
}

func (s *Server) listFiles(c *gin.Context) {
	list, err := s.files.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getFile(c *gin.Context) {
	f, err := s.files.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	typ := f.Type
	if typ == "" {
		typ = "application/octet-stream"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	c.Data(http.StatusOK, typ, f.Data)
}

func (s *Server) fileExists(c *gin.Context) {
	ok, err := s.files.Exists(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) deleteFile(c *gin.Context) {
	if err := s.files.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) renameFile(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, `body must be {"name": "..."}`)
		return
	}

	name, err := s.files.Rename(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, renameResponse{Name: name})
}
