// Package httputils provides HTTP utility functions.
package httputils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/gitnar/pkg/errors"
)

// Response is the uniform API envelope.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// WriteResponse writes the response to the client.
// It handles both success and error cases, ensuring consistent response format.
func WriteResponse(c *gin.Context, err error, data any) {
	if err != nil {
		errno := errors.FromError(err)
		c.JSON(errno.HTTPStatus(), &Response{
			Code:    errno.Code,
			Message: errno.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, &Response{
		Code:    errors.OK.Code,
		Message: "success",
		Data:    data,
	})
}
