package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 所有错误响应统一为 {"message": ...}。
func Message(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

func BadRequest(c *gin.Context, msg string) { Message(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Message(c, http.StatusNotFound, msg) }
func Internal(c *gin.Context, msg string)   { Message(c, http.StatusInternalServerError, msg) }
