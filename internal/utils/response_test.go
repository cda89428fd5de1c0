// internal/utils/response_test.go
package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type classifiedError struct {
	status  int
	code    string
	details interface{}
}

func (e *classifiedError) Error() string             { return "classified: " + e.code }
func (e *classifiedError) HTTPStatus() int           { return e.status }
func (e *classifiedError) ErrorCode() string         { return e.code }
func (e *classifiedError) MessageKey() string        { return "test.unknown_key" }
func (e *classifiedError) ErrorDetails() interface{} { return e.details }

func renderServiceError(t *testing.T, err error) (int, APIResponse) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	ServiceErrorResponse(c, err)

	var body APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestServiceErrorResponseConflictKeepsCode(t *testing.T) {
	status, body := renderServiceError(t, fmt.Errorf("wrapped: %w", &classifiedError{
		status: http.StatusConflict,
		code:   "PRECONDITION_FAILED",
	}))

	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "PRECONDITION_FAILED", body.Error.Code)
	assert.Equal(t, "classified: PRECONDITION_FAILED", body.Error.Message)
}

func TestServiceErrorResponseBadGateway(t *testing.T) {
	status, body := renderServiceError(t, &classifiedError{
		status: http.StatusBadGateway,
		code:   "EXTERNAL_DEPENDENCY_FAILED",
	})

	assert.Equal(t, http.StatusBadGateway, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "EXTERNAL_DEPENDENCY_FAILED", body.Error.Code)
}

func TestServiceErrorResponseValidationFields(t *testing.T) {
	status, body := renderServiceError(t, &classifiedError{
		status: http.StatusUnprocessableEntity,
		code:   "VALIDATION_FAILED",
		details: []ValidationError{{
			Field:   "reason",
			Tag:     "reason",
			Message: "Reason must be at least 12 characters",
		}},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)

	fields, ok := body.Error.Details.([]interface{})
	require.True(t, ok)
	require.Len(t, fields, 1)
	assert.Equal(t, "reason", fields[0].(map[string]interface{})["field"])
}

func TestServiceErrorResponseUnclassified(t *testing.T) {
	status, body := renderServiceError(t, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
}
