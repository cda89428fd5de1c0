// internal/utils/response.go
package utils

import (
	"errors"
	"net/http"

	"github.com/labtrust/trust-engine/internal/i18n"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Error    *APIError   `json:"error,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
	Meta     interface{} `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

// CreatedWithWarningsResponse reports a committed write whose follow-up side
// effect (for example a checkout session) did not complete.
func CreatedWithWarningsResponse(c *gin.Context, data interface{}, warnings []string) {
	c.JSON(http.StatusCreated, APIResponse{
		Success:  true,
		Data:     data,
		Warnings: warnings,
	})
}

func SuccessWithWarningsResponse(c *gin.Context, data interface{}, warnings []string) {
	c.JSON(http.StatusOK, APIResponse{
		Success:  true,
		Data:     data,
		Warnings: warnings,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func BadRequestResponse(c *gin.Context, message string, details interface{}) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyValidationInvalid)
	}
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message, details)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyAuthRequired)
	}
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func ForbiddenResponse(c *gin.Context, message string) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyAdminAccessDenied)
	}
	ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", message, nil)
}

func NotFoundResponse(c *gin.Context, resource string) {
	lang := GetLangFromContext(c)
	message := i18n.T(lang, resource+".not_found")
	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", message, nil)
}

func ConflictResponse(c *gin.Context, code, message string) {
	ErrorResponse(c, http.StatusConflict, code, message, nil)
}

func BadGatewayResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadGateway, "EXTERNAL_DEPENDENCY_FAILED", message, nil)
}

func InternalErrorResponse(c *gin.Context, message string) {
	if message == "" {
		message = i18n.T(GetLangFromContext(c), i18n.KeyInternalError)
	}
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, nil)
}

func ValidationErrorResponse(c *gin.Context, message string, errors []ValidationError) {
	if message == "" {
		message = i18n.T(GetLangFromContext(c), i18n.KeyValidationInvalid)
	}
	ErrorResponse(c, http.StatusUnprocessableEntity, "VALIDATION_FAILED", message, errors)
}

func PaginatedResponse(c *gin.Context, result PaginationResult) {
	SetPaginationHeaders(c, result)
	SuccessResponseWithMeta(c, result.Data, gin.H{
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

func GetLangFromContext(c *gin.Context) string {
	if lang, exists := c.Get("lang"); exists {
		if langStr, ok := lang.(string); ok {
			return langStr
		}
	}
	return "en"
}

func GetUserIDFromContext(c *gin.Context) (string, bool) {
	if userID, exists := c.Get("user_id"); exists {
		if userIDStr, ok := userID.(string); ok {
			return userIDStr, true
		}
	}
	return "", false
}

// IsAdminFromContext reports the admin claim carried by the identity token.
func IsAdminFromContext(c *gin.Context) bool {
	if isAdmin, exists := c.Get("is_admin"); exists {
		if b, ok := isAdmin.(bool); ok {
			return b
		}
	}
	return false
}

// statusError is implemented by service-layer errors that know their HTTP
// mapping.
type statusError interface {
	error
	HTTPStatus() int
	ErrorCode() string
	MessageKey() string
	ErrorDetails() interface{}
}

// ServiceErrorResponse writes err using its service classification, falling
// back to 500 for unclassified errors.
func ServiceErrorResponse(c *gin.Context, err error) {
	var se statusError
	if !errors.As(err, &se) {
		c.Error(err)
		InternalErrorResponse(c, "")
		return
	}

	message := i18n.T(GetLangFromContext(c), se.MessageKey())
	if message == se.MessageKey() {
		message = se.Error()
	}

	switch se.HTTPStatus() {
	case http.StatusConflict:
		ConflictResponse(c, se.ErrorCode(), message)
	case http.StatusBadGateway:
		BadGatewayResponse(c, message)
	case http.StatusUnprocessableEntity:
		if fields, ok := se.ErrorDetails().([]ValidationError); ok {
			ValidationErrorResponse(c, message, fields)
			return
		}
		ErrorResponse(c, se.HTTPStatus(), se.ErrorCode(), message, se.ErrorDetails())
	default:
		ErrorResponse(c, se.HTTPStatus(), se.ErrorCode(), message, se.ErrorDetails())
	}
}
