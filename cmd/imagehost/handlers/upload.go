package handlers

import (
	"errors"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/imagehost/cmd/imagehost/models"
	"github.com/lyzr/imagehost/cmd/imagehost/service"
	"github.com/lyzr/imagehost/common/bootstrap"
)

// multipart framing allowed on top of the image size ceiling
const multipartOverhead = 64 * 1024

// FilenameHeader carries the client file name for raw-body uploads
const FilenameHeader = "Filename"

// UploadHandler accepts new images
type UploadHandler struct {
	components *bootstrap.Components
	pipeline   *service.UploadPipeline
	maxBytes   int64
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(components *bootstrap.Components, pipeline *service.UploadPipeline) *UploadHandler {
	return &UploadHandler{
		components: components,
		pipeline:   pipeline,
		maxBytes:   components.Config.Upload.MaxBytes,
	}
}

// Upload ingests one image, either as the multipart "image" field or as the
// raw request body named by the Filename header.
// POST /upload
func (h *UploadHandler) Upload(c echo.Context) error {
	req := c.Request()
	ctx := req.Context()
	log := h.components.Logger.WithContext(ctx)

	if req.ContentLength < 0 {
		log.Warn("upload rejected", "stage", "size", "error", "missing Content-Length")
		return echo.NewHTTPError(http.StatusBadRequest, "Content-Length required")
	}
	if req.ContentLength > h.maxBytes+multipartOverhead {
		log.Warn("upload rejected", "stage", "size", "content_length", req.ContentLength)
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
	}
	req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxBytes+multipartOverhead)

	upload, cleanup, err := h.readUpload(c)
	if err != nil {
		return err
	}
	defer cleanup()

	outcome, err := h.pipeline.Ingest(ctx, upload)
	if err != nil {
		return toHTTPError(err)
	}

	location := outcome.Location()
	c.Response().Header().Set(echo.HeaderLocation, location)
	return c.JSON(http.StatusCreated, models.UploadResult{
		Filename:  outcome.Record.Filename(),
		Location:  location,
		Duplicate: outcome.Duplicate,
	})
}

func (h *UploadHandler) readUpload(c echo.Context) (service.Upload, func(), error) {
	req := c.Request()
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))
	if mediaType != echo.MIMEMultipartForm {
		return service.Upload{
			Filename:      req.Header.Get(FilenameHeader),
			ContentLength: req.ContentLength,
			Body:          req.Body,
		}, func() {}, nil
	}

	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.Upload{}, nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
		}
		h.components.Logger.WithContext(req.Context()).Warn("upload rejected", "stage", "multipart", "error", err)
		return service.Upload{}, nil, echo.NewHTTPError(http.StatusBadRequest, "multipart field \"image\" required")
	}

	file, err := fh.Open()
	if err != nil {
		return service.Upload{}, nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable multipart file")
	}

	return service.Upload{
		Filename:      fh.Filename,
		ContentLength: fh.Size,
		Body:          file,
	}, func() { file.Close() }, nil
}
