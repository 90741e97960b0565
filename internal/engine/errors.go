package engine

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"condition-builder/internal/condition"
)

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func UnknownTableError(name string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_TABLE",
		Status:  404,
		Message: fmt.Sprintf("Unknown table: %s", name),
	}
}

func InvalidBodyError(err error) *AppError {
	return &AppError{
		Code:    "INVALID_BODY",
		Status:  400,
		Message: fmt.Sprintf("Invalid request body: %v", err),
	}
}

func ValidationError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  422,
		Message: "Validation failed",
		Details: details,
	}
}

var compileErrorCodes = map[condition.Kind]string{
	condition.KindSchemaViolation:     "SCHEMA_VIOLATION",
	condition.KindTypeMismatch:        "TYPE_MISMATCH",
	condition.KindInvalidOperator:     "INVALID_OPERATOR",
	condition.KindConstraintViolation: "CONSTRAINT_VIOLATION",
	condition.KindStructureViolation:  "STRUCTURE_VIOLATION",
}

// CompileErrorToAppError converts a rejected tree into a 422 response. The
// detail names the path of the offending node. Errors that are not compile
// errors are returned unchanged.
func CompileErrorToAppError(err error) error {
	var ce *condition.CompileError
	if !errors.As(err, &ce) {
		return err
	}
	return &AppError{
		Code:    compileErrorCodes[ce.Kind],
		Status:  422,
		Message: ce.Error(),
		Details: []ErrorDetail{{Field: ce.Path, Rule: string(ce.Kind), Message: ce.Reason}},
	}
}

// ErrorHandler is the Fiber error handler: *AppError values are rendered as
// they are, everything else becomes a 500 with a generic message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		return c.Status(code).JSON(ErrorResponse{
			Error: &AppError{Code: "HTTP_ERROR", Message: fiberErr.Message},
		})
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
	}

	log.Printf("ERROR: %v", err)
	return c.Status(code).JSON(ErrorResponse{
		Error: &AppError{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		},
	})
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: 403, Message: msg}
}
