package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bucketfs/pkg/namespace"
)

// bindListOptions reads sort, order, limit and offset from the query string.
func bindListOptions(ctx echo.Context) (namespace.ListOptions, error) {
	var opts namespace.ListOptions
	err := echo.QueryParamsBinder(ctx).
		String("sort", &opts.Sort).
		String("order", &opts.Order).
		Int("limit", &opts.Limit).
		Int("offset", &opts.Offset).
		BindError()
	return opts, err
}

func (s *Server) list(ctx echo.Context) error {
	opts, err := bindListOptions(ctx)
	if err != nil {
		return badRequest(ctx, "limit and offset must be integers")
	}

	listing, err := s.service.List(ctx.Request().Context(), scopeOf(ctx), ctx.Param("bucket"), ctx.QueryParam("path"), opts)
	if err != nil {
		return fail(ctx, "list", err)
	}
	return ctx.JSON(http.StatusOK, listing)
}

func (s *Server) tree(ctx echo.Context) error {
	result, err := s.service.Tree(ctx.Request().Context(), scopeOf(ctx), ctx.Param("bucket"))
	if err != nil {
		return fail(ctx, "tree", err)
	}
	return ctx.JSON(http.StatusOK, result)
}

func (s *Server) expand(ctx echo.Context) error {
	node, err := s.service.Expand(ctx.Request().Context(), scopeOf(ctx), ctx.Param("bucket"), ctx.QueryParam("path"))
	if err != nil {
		return fail(ctx, "expand", err)
	}
	return ctx.JSON(http.StatusOK, node)
}

func (s *Server) reconcile(ctx echo.Context) error {
	limit := 100
	if err := echo.QueryParamsBinder(ctx).Int("limit", &limit).BindError(); err != nil {
		return badRequest(ctx, "limit must be an integer")
	}

	result, err := s.service.Reconcile(ctx.Request().Context(), limit)
	if err != nil {
		return fail(ctx, "reconcile", err)
	}
	return ctx.JSON(http.StatusOK, result)
}
