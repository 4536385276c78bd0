package server

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"bucketfs/pkg/log"
)

func (s *Server) downloadFile(ctx echo.Context) error {
	bucket, id := ctx.Param("bucket"), ctx.Param("id")
	log.Info().Str("bucket", bucket).Str("file_id", id).Msg("File download request")

	rc, file, err := s.service.OpenFile(ctx.Request().Context(), scopeOf(ctx), bucket, id)
	if err != nil {
		return fail(ctx, "download", err)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			log.Warn().Err(err).Str("file_id", id).Msg("Failed to close blob reader")
		}
	}()

	header := ctx.Response().Header()
	header.Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{
		"filename": file.OriginalName,
	}))
	header.Set(echo.HeaderContentLength, strconv.FormatInt(file.Size, 10))
	if file.Checksum != "" {
		header.Set("ETag", strconv.Quote(file.Checksum))
	}

	log.Info().Str("bucket", bucket).Str("file_id", id).Int64("size", file.Size).Msg("Serving file download")
	return ctx.Stream(http.StatusOK, file.MimeType, rc)
}
