package server

import (
	"github.com/labstack/echo/v4"

	"bucketfs/pkg/log"
	"bucketfs/pkg/models"
)

func scopeOf(ctx echo.Context) models.Scope {
	return models.Scope{
		ProjectID: ctx.Request().Header.Get(HeaderProject),
		Principal: ctx.Request().Header.Get(HeaderPrincipal),
	}
}

// logEvents records the side effects of a mutation.
func logEvents(events []models.Event) {
	for _, e := range events {
		log.Debug().
			Str("event", string(e.Kind)).
			Int64("bucket_id", e.BucketID).
			Str("path", e.Path).
			Str("file_id", e.FileID).
			Msg("Namespace event")
	}
}
