package errors

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPErrorResponse represents the structure of error responses sent to clients
type HTTPErrorResponse struct {
	Error   ErrorInfo              `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// ErrorInfo contains the core error information
type ErrorInfo struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// ToHTTPError converts a KitError to an Echo HTTP error
func ToHTTPError(err error) error {
	var ke *KitError
	if errors.As(err, &ke) {
		return echo.NewHTTPError(ke.GetHTTPStatus(), HTTPErrorResponse{
			Error: ErrorInfo{
				Code:    ke.Code,
				Message: ke.Message,
				Details: ke.Details,
			},
			Context: ke.Context,
		})
	}

	// For non-KitError, create a generic internal error
	return echo.NewHTTPError(http.StatusInternalServerError, HTTPErrorResponse{
		Error: ErrorInfo{
			Code:    ErrInternal,
			Message: "Internal server error",
			Details: err.Error(),
		},
	})
}

// BadRequest creates a 400 Bad Request error
func BadRequest(message, details string) error {
	return echo.NewHTTPError(http.StatusBadRequest, HTTPErrorResponse{
		Error: ErrorInfo{
			Code:    ErrInvalidInput,
			Message: message,
			Details: details,
		},
	})
}
