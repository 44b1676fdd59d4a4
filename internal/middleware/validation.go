package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/temcen/moviegraph/internal/validation"
)

const maxBodyBytes = 64 << 10

// ValidateBody checks the JSON request body against a named schema and
// restores it for the handler.
func ValidateBody(validator *validation.SchemaValidator, schemaName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "BODY_READ_ERROR", "Failed to read request body")
			return
		}
		if len(bodyBytes) > maxBodyBytes {
			abortWithError(c, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Request body is too large")
			return
		}
		if len(bytes.TrimSpace(bodyBytes)) == 0 {
			abortWithError(c, http.StatusBadRequest, "EMPTY_BODY", "Request body is required")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		result := validator.Validate(schemaName, bodyBytes)
		if !result.Valid {
			apiError := result.ToAPIError()
			if errorObj, ok := apiError["error"].(map[string]interface{}); ok {
				errorObj["request_id"] = c.GetString(ContextRequestID)
				errorObj["path"] = c.Request.URL.Path
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, apiError)
			return
		}

		c.Next()
	}
}
