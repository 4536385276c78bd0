package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bucketfs/pkg/log"
)

// deleteFile handles DELETE /api/v1/buckets/{bucket}/files/{id}.
func (s *Server) deleteFile(ctx echo.Context) error {
	bucket, id := ctx.Param("bucket"), ctx.Param("id")

	log.Info().
		Str("bucket", bucket).
		Str("file_id", id).
		Str("method", "DELETE").
		Str("path", ctx.Request().URL.Path).
		Msg("File delete request")

	res, err := s.service.DeleteFile(ctx.Request().Context(), scopeOf(ctx), bucket, id)
	if err != nil {
		return fail(ctx, "delete_file", err)
	}
	logEvents(res.Events)

	log.Info().Str("bucket", bucket).Str("file_id", id).Msg("File deleted successfully")
	return ctx.JSON(http.StatusOK, map[string]string{
		"message": "File deleted successfully",
		"id":      id,
	})
}
