// Package respond writes the ledger service envelope
// {success, message, errorCode, data, timestamp} for the sandbox handlers.
package respond

import (
	"errors"
	"log/slog"
	"net/http"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletgate/internal/apierror"
	"github.com/congo-pay/walletgate/internal/model"
)

// Codes the sandbox emits that clients do not match on.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
)

const internalMessage = "An unexpected error occurred"

// Fault is a handled failure rendered as an error envelope.
type Fault struct {
	Status  int
	Code    string
	Message string
}

func (f *Fault) Error() string {
	return f.Code + ": " + f.Message
}

// NewFault builds a Fault whose message is err's text as a sentence.
func NewFault(status int, code string, err error) *Fault {
	return &Fault{Status: status, Code: code, Message: Sentence(err)}
}

// Sentence upper-cases the first letter of err's text.
func Sentence(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

// OK writes a 200 success envelope.
func OK(c *fiber.Ctx, data any, message string) error {
	return write(c, http.StatusOK, data, message)
}

// Created writes a 201 success envelope.
func Created(c *fiber.Ctx, data any, message string) error {
	return write(c, http.StatusCreated, data, message)
}

func write(c *fiber.Ctx, status int, data any, message string) error {
	return c.Status(status).JSON(model.Envelope[any]{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: model.NewTime(time.Now()),
	})
}

// ErrorHandler renders every error that escapes a handler. Validation
// failures carry their field map as data.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		env := model.Envelope[any]{Timestamp: model.NewTime(time.Now())}
		status := http.StatusInternalServerError

		var (
			fault      *Fault
			validation *apierror.ValidationError
			fiberErr   *fiber.Error
		)
		switch {
		case errors.As(err, &fault):
			status, env.ErrorCode, env.Message = fault.Status, fault.Code, fault.Message
		case errors.As(err, &validation):
			status, env.ErrorCode, env.Message = http.StatusBadRequest, apierror.CodeValidation, validation.Message
			env.Data = validation.Fields
		case errors.As(err, &fiberErr):
			status, env.ErrorCode, env.Message = fiberErr.Code, codeForStatus(fiberErr.Code), fiberErr.Message
		default:
			env.ErrorCode, env.Message = apierror.CodeInternal, internalMessage
		}

		if status >= http.StatusInternalServerError {
			logger.Error("unexpected error", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return c.Status(status).JSON(env)
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return apierror.CodeUnauthenticated
	case http.StatusForbidden:
		return apierror.CodeUnauthorized
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeTooManyRequests
	default:
		return apierror.CodeInternal
	}
}

// Validation returns a VALIDATION_ERROR for the collected field messages, or
// nil when there are none.
func Validation(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &apierror.ValidationError{Message: "Validation failed", Fields: fields}
}
