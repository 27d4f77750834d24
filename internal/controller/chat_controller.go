package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"trade-intel-be/internal/dto"
	"trade-intel-be/internal/pkg/serverutils"
	"trade-intel-be/internal/service"
	"trade-intel-be/pkg/chatstream"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	StartChat(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
	GetAllSessions(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService  service.IChatService
	orchestrator *chatstream.Orchestrator
}

func NewChatController(chatService service.IChatService, orchestrator *chatstream.Orchestrator) IChatController {
	return &chatController{
		chatService:  chatService,
		orchestrator: orchestrator,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("", serverutils.OptionalJwtMiddleware, c.StartChat)
	h.Get("stream/:token", c.Stream)

	s := h.Group("sessions", serverutils.JwtMiddleware)
	s.Get("", c.GetAllSessions)
	s.Get(":id/history", c.GetChatHistory)
	s.Delete(":id", c.DeleteSession)
}

// StartChat registers a chat job and returns the single-use stream token.
// Works with or without a JWT; identity comes only from the verified token.
func (c *chatController) StartChat(ctx *fiber.Ctx) error {
	var userId *uuid.UUID
	if raw := ctx.Locals("user_id"); raw != nil {
		if idStr, ok := raw.(string); ok {
			if id, err := uuid.Parse(idStr); err == nil {
				userId = &id
			}
		}
	}

	var req dto.StartChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.StartChat(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success start chat", res))
}

// Stream consumes the token and streams the job's events as SSE frames.
// The token is burned on admission, so a replayed URL gets a 401 even if
// the first attempt died mid-stream.
func (c *chatController) Stream(ctx *fiber.Ctx) error {
	streamToken := ctx.Params("token")

	job, err := c.orchestrator.Admit(ctx.Context(), streamToken)
	if err != nil {
		if errors.Is(err, chatstream.ErrTokenInvalid) || errors.Is(err, chatstream.ErrJobNotFound) {
			return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse("Invalid or expired stream token"))
		}
		return err
	}

	// The request context dies when the handler returns, but the stream
	// outlives the handler inside the body writer. Cancelled on disconnect.
	streamCtx, cancel := context.WithCancel(context.Background())

	events := make(chan chatstream.StreamEvent)
	errCh := make(chan error, 1)
	go func() {
		streamErr := c.orchestrator.Stream(streamCtx, job, func(ev chatstream.StreamEvent) error {
			if streamCtx.Err() != nil {
				return streamCtx.Err()
			}
			select {
			case events <- ev:
				return nil
			case <-streamCtx.Done():
				return streamCtx.Err()
			}
		})
		close(events)
		errCh <- streamErr
	}()

	// Hold the response until the first event so admission-time failures
	// still map to a proper status code instead of a broken SSE body.
	first, ok := <-events
	if !ok {
		cancel()
		if streamErr := <-errCh; errors.Is(streamErr, chatstream.ErrPoolSaturated) {
			return ctx.Status(fiber.StatusTooManyRequests).JSON(serverutils.ErrorResponse("Too many concurrent streams, try again shortly"))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse("Stream could not be started"))
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		if err := writeSSE(w, first); err != nil {
			return
		}
		for ev := range events {
			if err := writeSSE(w, ev); err != nil {
				// Client went away; cancellation tells the orchestrator.
				return
			}
		}
		<-errCh
	})
	return nil
}

func writeSSE(w *bufio.Writer, ev chatstream.StreamEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func (c *chatController) GetAllSessions(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.chatService.GetAllSessions(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get sessions", res))
}

func (c *chatController) GetChatHistory(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	idParam := ctx.Params("id")
	sessionId, err := uuid.Parse(idParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	res, err := c.chatService.GetChatHistory(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	idParam := ctx.Params("id")
	sessionId, err := uuid.Parse(idParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	req := dto.DeleteSessionRequest{SessionId: sessionId}
	if err := c.chatService.DeleteSession(ctx.Context(), userId, &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}
