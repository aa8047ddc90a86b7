package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/imagehost/cmd/imagehost/service"
	"github.com/lyzr/imagehost/common/bootstrap"
)

// ImageHandler serves the listing and individual images
type ImageHandler struct {
	components *bootstrap.Components
	listing    *service.ListingService
	images     *service.ImageService
}

// NewImageHandler creates a new image handler
func NewImageHandler(components *bootstrap.Components, listing *service.ListingService, images *service.ImageService) *ImageHandler {
	return &ImageHandler{
		components: components,
		listing:    listing,
		images:     images,
	}
}

// ListImages returns one page of metadata, newest first
// GET /images?page=N
func (h *ImageHandler) ListImages(c echo.Context) error {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}

	list, err := h.listing.Page(c.Request().Context(), page)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetImage returns the stored bytes
// GET /images/:filename
func (h *ImageHandler) GetImage(c echo.Context) error {
	data, contentType, err := h.images.Open(c.Request().Context(), c.Param("filename"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Blob(http.StatusOK, contentType, data)
}

// DeleteImage removes the record and the blob
// DELETE /images/:filename
func (h *ImageHandler) DeleteImage(c echo.Context) error {
	if err := h.images.Delete(c.Request().Context(), c.Param("filename")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
