package utils

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response is the JSON envelope every endpoint answers with.
type Response struct {
	Success bool       `json:"success"`
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    Meta       `json:"meta"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Meta struct {
	RequestID  string      `json:"requestId"`
	Timestamp  string      `json:"timestamp"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination carries the identity provider's continuation token. There are
// no page numbers or totals.
type Pagination struct {
	Limit     int    `json:"limit"`
	NextToken string `json:"nextToken,omitempty"`
	HasMore   bool   `json:"hasMore"`
}

func Success(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Response{Success: true, Code: code, Message: message, Data: data, Meta: newMeta(c)})
}

// SuccessWithPagination is Success plus cursor metadata for list endpoints.
func SuccessWithPagination(c *gin.Context, code int, message string, data any, limit int, nextToken string) {
	meta := newMeta(c)
	meta.Pagination = &Pagination{Limit: limit, NextToken: nextToken, HasMore: nextToken != ""}
	c.JSON(code, Response{Success: true, Code: code, Message: message, Data: data, Meta: meta})
}

// Error writes a failure envelope. errCode is a stable machine readable code
// such as RATE_LIMITED.
func Error(c *gin.Context, code int, errCode, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Error:   &ErrorInfo{Code: errCode, Message: message},
		Meta:    newMeta(c),
	})
}

func newMeta(c *gin.Context) Meta {
	id := c.GetString("request_id")
	if id == "" {
		id = uuid.New().String()[:8]
	}
	return Meta{RequestID: id, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}
