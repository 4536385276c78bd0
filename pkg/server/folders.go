package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type createFolderRequest struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

func (s *Server) listFolders(ctx echo.Context) error {
	folders, err := s.service.ListFolders(ctx.Request().Context(), scopeOf(ctx), ctx.Param("bucket"), ctx.QueryParam("path"))
	if err != nil {
		return fail(ctx, "list_folders", err)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"folders": folders})
}

func (s *Server) createFolder(ctx echo.Context) error {
	var req createFolderRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid folder body")
	}

	res, err := s.service.CreateFolder(ctx.Request().Context(), scopeOf(ctx), ctx.Param("bucket"), req.Path, req.Name)
	if err != nil {
		return fail(ctx, "create_folder", err)
	}
	logEvents(res.Events)
	return ctx.JSON(http.StatusCreated, res.Record)
}

func (s *Server) deleteFolder(ctx echo.Context) error {
	var (
		path    string
		cascade bool
	)
	err := echo.QueryParamsBinder(ctx).
		String("path", &path).
		Bool("cascade", &cascade).
		BindError()
	if err != nil {
		return badRequest(ctx, "cascade must be a boolean")
	}

	res, err := s.service.DeleteFolder(ctx.Request().Context(), scopeOf(ctx), ctx.Param("bucket"), path, cascade)
	if err != nil {
		return fail(ctx, "delete_folder", err)
	}
	logEvents(res.Events)
	return ctx.JSON(http.StatusOK, res.Record)
}
