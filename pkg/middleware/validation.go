package middleware

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/shailjagaurzz/jan-kavach/pkg/validation"
)

// ValidateRequest is a generic middleware that validates the request body against a struct.
// Usage: router.POST("/endpoint", middleware.ValidateRequest(&fraud.DetectionRequest{}), handler)
func ValidateRequest(requestType interface{}) gin.HandlerFunc {
	// Capture the type once at registration time
	t := reflect.TypeOf(requestType)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return func(c *gin.Context) {
		// Create a fresh instance per request to avoid data races
		req := reflect.New(t).Interface()

		if err := c.ShouldBindJSON(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request format",
				"details": err.Error(),
			})
			c.Abort()
			return
		}

		if err := validation.ValidateStruct(req); err != nil {
			if valErr, ok := err.(*validation.ValidationError); ok {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":  "Validation failed",
					"fields": valErr.Errors,
				})
			} else {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Validation failed",
				})
			}
			c.Abort()
			return
		}

		c.Set("validated_request", req)
		c.Next()
	}
}

// GetValidatedRequest retrieves the validated request struct from the context
func GetValidatedRequest(c *gin.Context) (interface{}, bool) {
	return c.Get("validated_request")
}
