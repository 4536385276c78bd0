package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bucketfs/pkg/log"
	"bucketfs/pkg/models"
	"bucketfs/pkg/namespace"
)

func (s *Server) listBuckets(ctx echo.Context) error {
	buckets, err := s.service.ListBuckets(ctx.Request().Context(), scopeOf(ctx))
	if err != nil {
		return fail(ctx, "list_buckets", err)
	}
	return ctx.JSON(http.StatusOK, models.BucketListResponse{Buckets: buckets})
}

func (s *Server) createBucket(ctx echo.Context) error {
	var spec namespace.BucketSpec
	if err := ctx.Bind(&spec); err != nil {
		return badRequest(ctx, "invalid bucket body")
	}

	res, err := s.service.CreateBucket(ctx.Request().Context(), scopeOf(ctx), spec)
	if err != nil {
		return fail(ctx, "create_bucket", err)
	}
	logEvents(res.Events)
	return ctx.JSON(http.StatusCreated, res.Record)
}

func (s *Server) getBucket(ctx echo.Context) error {
	bucket, err := s.service.GetBucket(ctx.Request().Context(), scopeOf(ctx), ctx.Param("bucket"))
	if err != nil {
		return fail(ctx, "get_bucket", err)
	}
	return ctx.JSON(http.StatusOK, bucket)
}

func (s *Server) updateBucket(ctx echo.Context) error {
	var patch namespace.BucketPatch
	if err := ctx.Bind(&patch); err != nil {
		return badRequest(ctx, "invalid bucket body")
	}

	res, err := s.service.UpdateBucket(ctx.Request().Context(), scopeOf(ctx), ctx.Param("bucket"), patch)
	if err != nil {
		return fail(ctx, "update_bucket", err)
	}
	logEvents(res.Events)
	return ctx.JSON(http.StatusOK, res.Record)
}

func (s *Server) deleteBucket(ctx echo.Context) error {
	var force bool
	if err := echo.QueryParamsBinder(ctx).Bool("force", &force).BindError(); err != nil {
		return badRequest(ctx, "force must be a boolean")
	}

	name := ctx.Param("bucket")
	res, err := s.service.DeleteBucket(ctx.Request().Context(), scopeOf(ctx), name, force)
	if err != nil {
		return fail(ctx, "delete_bucket", err)
	}
	logEvents(res.Events)

	log.Info().Str("bucket", name).Int("purged", res.Record.Purged).Msg("Bucket delete request completed")
	return ctx.JSON(http.StatusOK, res.Record)
}
