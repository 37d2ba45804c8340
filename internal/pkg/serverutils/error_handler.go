package serverutils

import (
	"errors"

	"docchat-be/internal/dto"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware translates the error taxonomy to HTTP statuses.
// Auth -> 401/403, Validation -> 400, RateLimit -> 429 (with reset time),
// anything unclassified -> 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var authErr *dto.AuthError
		if errors.As(err, &authErr) {
			status := fiber.StatusUnauthorized
			if authErr.Forbidden {
				status = fiber.StatusForbidden
			}
			return ctx.Status(status).JSON(ErrorResponse(status, authErr.Message))
		}

		var valErr *ValidationError
		if errors.As(err, &valErr) {
			return ctx.Status(fiber.StatusBadRequest).JSON(
				ErrorResponse(fiber.StatusBadRequest, valErr.Message))
		}

		var limitErr *dto.RateLimitError
		if errors.As(err, &limitErr) {
			return ctx.Status(fiber.StatusTooManyRequests).JSON(dto.RateLimitExceededResponse{
				Success:   false,
				Code:      fiber.StatusTooManyRequests,
				Message:   limitErr.Error(),
				ErrorType: "RATE_LIMIT_EXCEEDED",
				Data: dto.RateLimitExceededData{
					Limit:     limitErr.Limit,
					Remaining: limitErr.Remaining,
					ResetTime: limitErr.ResetAt,
				},
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(
			ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
	}
}
