// Package api serves reports and filter options over HTTP.
package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/dori/workscope/internal/report"
)

// Options configures the HTTP boundary
type Options struct {
	// JWTSecret switches identity from X-User-* headers to HS256 bearer tokens
	JWTSecret string
	Logger    *slog.Logger
}

// New builds the fiber app with every route mounted
func New(reports *report.Service, opts Options) *fiber.App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:               "workscope",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(accessLog(logger))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	h := &handlers{reports: reports}
	identity := Identity(opts.JWTSecret)
	app.Get("/reports/:kind", identity, h.report)
	app.Get("/scope/departments", identity, h.departments)
	app.Get("/scope/projects", identity, h.projects)

	return app
}

// errorHandler renders every error as {"error": "..."}. Unexpected errors
// are logged and reported without detail.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal error"

		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code = fe.Code
			msg = fe.Message
		case errors.Is(err, report.ErrUnknownKind):
			code = fiber.StatusBadRequest
			msg = err.Error()
		default:
			logger.Error("request failed",
				"request_id", requestID(c),
				"path", c.Path(),
				"error", err,
			)
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}

func accessLog(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		logger.Debug("request",
			"request_id", requestID(c),
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"elapsed", time.Since(start),
		)
		return err
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		return id
	}
	return ""
}
