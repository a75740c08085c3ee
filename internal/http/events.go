package http

import (
	"errors"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/jmehdipour/event-stream/internal/http/middleware"
	"github.com/jmehdipour/event-stream/internal/model"
	"github.com/jmehdipour/event-stream/internal/stream"
)

type dispatchReq struct {
	Topic       string        `json:"topic"`
	Hash        *string       `json:"hash"`
	Project     *string       `json:"project"`
	User        *string       `json:"user"`
	DependsOn   *string       `json:"dependsOn"`
	Description string        `json:"description"`
	Summary     model.JSONMap `json:"summary"`
	Payload     model.JSONMap `json:"payload"`
	Finished    *bool         `json:"finished"` // default true
	Store       *bool         `json:"store"`    // default true
	Reuse       bool          `json:"reuse"`
	Recipients  []string      `json:"recipients"`
}

func dispatchHandler(st *stream.Stream) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req dispatchReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		req.Topic = strings.TrimSpace(req.Topic)
		if req.Topic == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "topic required"})
		}

		sender, _ := middleware.SenderFromCtx(c)

		opts := stream.DispatchOpts{
			Sender:      &sender,
			Hash:        req.Hash,
			Project:     req.Project,
			User:        req.User,
			DependsOn:   req.DependsOn,
			Description: req.Description,
			Summary:     req.Summary,
			Payload:     req.Payload,
			Pending:     req.Finished != nil && !*req.Finished,
			Transient:   req.Store != nil && !*req.Store,
			Reuse:       req.Reuse,
			Recipients:  req.Recipients,
		}

		id, err := st.Dispatch(c.Request().Context(), req.Topic, opts)
		if err != nil {
			if stream.IsConstraint(err) {
				return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
			}

			log.Errorf("dispatch failed: %v", err)

			if id != "" {
				// Hook failure: the event exists, report both facts.
				return c.JSON(http.StatusInternalServerError, map[string]any{
					"error": "hook failed",
					"id":    id,
				})
			}
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "dispatch failed"})
		}

		return c.JSON(http.StatusCreated, map[string]string{"id": id})
	}
}

type updateReq struct {
	Project     *string       `json:"project"`
	User        *string       `json:"user"`
	Status      *string       `json:"status"`
	Description *string       `json:"description"`
	Summary     model.JSONMap `json:"summary"`
	Payload     model.JSONMap `json:"payload"`
	Progress    *float64      `json:"progress"`
	Retries     *int          `json:"retries"`
	Store       *bool         `json:"store"` // default true
	Recipients  []string      `json:"recipients"`
}

func updateHandler(st *stream.Stream) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		var status *model.EventStatus
		if req.Status != nil {
			parsed, ok := model.ParseEventStatus(*req.Status)
			if !ok {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
			}
			status = &parsed
		}

		sender, _ := middleware.SenderFromCtx(c)

		found, err := st.Update(c.Request().Context(), c.Param("id"), stream.UpdateOpts{
			Sender:      &sender,
			Project:     req.Project,
			User:        req.User,
			Status:      status,
			Description: req.Description,
			Summary:     req.Summary,
			Payload:     req.Payload,
			Progress:    req.Progress,
			Retries:     req.Retries,
			Transient:   req.Store != nil && !*req.Store,
			Recipients:  req.Recipients,
		})
		if err != nil {
			log.Errorf("update failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "update failed"})
		}
		if !found {
			return c.JSON(http.StatusNotFound, map[string]any{"updated": false})
		}
		return c.JSON(http.StatusOK, map[string]any{"updated": true})
	}
}

func getHandler(st *stream.Stream) echo.HandlerFunc {
	return func(c echo.Context) error {
		ev, err := st.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, stream.ErrNotFound) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
			}

			log.Errorf("get failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, ev)
	}
}
