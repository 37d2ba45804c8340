package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"docchat-be/internal/dto"
	"docchat-be/internal/pkg/serverutils"
	"docchat-be/internal/service"
)

type IQueryController interface {
	RegisterRoutes(r fiber.Router)
	Query(ctx *fiber.Ctx) error
	InvalidateSessionCache(ctx *fiber.Ctx) error
}

type queryController struct {
	queryService service.IQueryService
}

func NewQueryController(queryService service.IQueryService) IQueryController {
	return &queryController{
		queryService: queryService,
	}
}

func (c *queryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("query", c.Query)
	h.Delete("session/:id/cache", c.InvalidateSessionCache)
}

// Query answers a question over the user's documents. Clarification and
// refusal turns return a JSON envelope; answers stream as server-sent events.
func (c *queryController) Query(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}
	role, _ := ctx.Locals("role").(string)

	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	// The fasthttp request context only closes on server shutdown, not on
	// client disconnect, so the stream writer owns a cancel of its own:
	// a failed write or flush cancels generation and unblocks the producer.
	streamCtx, cancel := context.WithCancel(ctx.Context())

	outcome, err := c.queryService.StreamQuery(streamCtx, userId, role, &req)
	if err != nil {
		cancel()
		return err
	}

	if outcome.Direct != nil {
		cancel()
		return ctx.JSON(serverutils.SuccessResponse("Query resolved", outcome.Direct))
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	stream := outcome.Stream
	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for event := range stream {
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		w.Flush()
	}))

	return nil
}

// InvalidateSessionCache clears every cached answer for one conversation
func (c *queryController) InvalidateSessionCache(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	res, err := c.queryService.InvalidateSessionCache(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session cache cleared", res))
}

func userIdFromLocals(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, &dto.AuthError{Message: "missing user identity"}
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, &dto.AuthError{Message: "invalid user identity"}
	}
	return userId, nil
}
