package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	msgUnauthorized   = "Unauthorized"
	msgInvalidRequest = "Invalid request"
	msgTooManyRequest = "Too many requests, please try again later."
	msgInternalError  = "Internal Server Error"
	msgNotFound       = "Not Found"
	msgNotAllowed     = "Method Not Allowed"
)

// ServiceResponse is the envelope of every JSON response
type ServiceResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ResponseObject any    `json:"responseObject"`
	StatusCode     int    `json:"statusCode"`
}

func respond(c *gin.Context, status int, message string, object any) {
	c.JSON(status, ServiceResponse{
		Success:        status < http.StatusBadRequest,
		Message:        message,
		ResponseObject: object,
		StatusCode:     status,
	})
}

func abort(c *gin.Context, status int, message string, object any) {
	respond(c, status, message, object)
	c.Abort()
}
