package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/imagehost/cmd/imagehost/container"
	"github.com/lyzr/imagehost/cmd/imagehost/handlers"
)

// RegisterPageRoutes registers the embedded HTML pages
func RegisterPageRoutes(e *echo.Echo) {
	// GET / and /index.html - gallery
	e.GET("/", handlers.Page("index.html"))
	e.GET("/index.html", handlers.Page("index.html"))

	// GET /upload - upload form
	e.GET("/upload", handlers.Page("upload.html"))
}

// RegisterImageRoutes registers upload, listing and retrieval routes
func RegisterImageRoutes(e *echo.Echo, c *container.Container) {
	uploadHandler := handlers.NewUploadHandler(c.Components, c.UploadPipeline)
	imageHandler := handlers.NewImageHandler(c.Components, c.ListingService, c.ImageService)

	// POST /upload - ingest an image
	e.POST("/upload", uploadHandler.Upload)

	// GET /images?page=N - metadata listing
	e.GET("/images", imageHandler.ListImages)

	// GET /images/:filename - stored bytes
	e.GET("/images/:filename", imageHandler.GetImage)

	if c.Components.Config.Features.EnableDelete {
		// DELETE /images/:filename - remove record and blob
		e.DELETE("/images/:filename", imageHandler.DeleteImage)
	}
}

// RegisterFallback answers everything no other route matched
func RegisterFallback(e *echo.Echo) {
	e.RouteNotFound("/*", handlers.NotFound)
}
