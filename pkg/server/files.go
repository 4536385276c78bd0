package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bucketfs/pkg/log"
	"bucketfs/pkg/models"
	"bucketfs/pkg/namespace"
)

type moveRequest struct {
	Target string `json:"target"`
}

type moveResponse struct {
	File      *models.File        `json:"file,omitempty"`
	State     namespace.MoveState `json:"state"`
	Unchanged bool                `json:"unchanged"`
	From      string              `json:"from"`
	To        string              `json:"to"`
}

func (s *Server) listFiles(ctx echo.Context) error {
	opts, err := bindListOptions(ctx)
	if err != nil {
		return badRequest(ctx, "limit and offset must be integers")
	}

	files, err := s.service.ListFiles(ctx.Request().Context(), scopeOf(ctx), ctx.Param("bucket"), ctx.QueryParam("path"), opts)
	if err != nil {
		return fail(ctx, "list_files", err)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"files": files})
}

func (s *Server) getFileInfo(ctx echo.Context) error {
	file, err := s.service.GetFile(ctx.Request().Context(), scopeOf(ctx), ctx.Param("bucket"), ctx.Param("id"))
	if err != nil {
		return fail(ctx, "get_file", err)
	}
	return ctx.JSON(http.StatusOK, file)
}

func (s *Server) moveFile(ctx echo.Context) error {
	var req moveRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid move body")
	}

	res, err := s.service.MoveFile(ctx.Request().Context(), scopeOf(ctx), ctx.Param("bucket"), ctx.Param("id"), req.Target)
	if err != nil {
		log.Debug().Str("file_id", ctx.Param("id")).Str("state", string(res.State)).Msg("Move rejected")
		return fail(ctx, "move_file", err)
	}
	logEvents(res.Events)

	return ctx.JSON(http.StatusOK, moveResponse{
		File:      res.File,
		State:     res.State,
		Unchanged: res.Unchanged,
		From:      res.From,
		To:        res.To,
	})
}
