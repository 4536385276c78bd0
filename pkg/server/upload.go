package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bucketfs/pkg/log"
	"bucketfs/pkg/models"
)

// genericMimeType is what clients send when they do not know the type; it is
// replaced by content sniffing.
const genericMimeType = "application/octet-stream"

func (s *Server) uploadFile(ctx echo.Context) error {
	bucket := ctx.Param("bucket")
	path := ctx.FormValue("path")
	log.Info().Str("bucket", bucket).Str("path", path).Msg("File upload request received")

	file, err := ctx.FormFile("file")
	if err != nil {
		log.Error().Err(err).Msg("File parameter is required")
		return badRequest(ctx, "file parameter is required")
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to open uploaded file",
		})
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close source file")
		}
	}()

	mimeType := ctx.FormValue("mime_type")
	if mimeType == "" {
		mimeType = file.Header.Get(echo.HeaderContentType)
	}
	if mimeType == genericMimeType {
		mimeType = ""
	}

	meta := models.FileMeta{Name: file.Filename, MimeType: mimeType, Size: file.Size}
	res, err := s.service.Upload(ctx.Request().Context(), scopeOf(ctx), bucket, path, meta, src)
	if err != nil {
		return fail(ctx, "upload", err)
	}
	logEvents(res.Events)

	return ctx.JSON(http.StatusCreated, res.Record)
}
