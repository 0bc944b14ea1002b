package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/logkit/logging"
)

// LevelController 可读写最小日志级别，通常是 logging.LoggerFactory
type LevelController interface {
	SetMinimumLevel(level logging.LogLevel)
	MinimumLevel() logging.LogLevel
}

type levelRequest struct {
	Level string `json:"level" binding:"required"`
}

// MountAdmin 挂载日志管理路由
//
//	GET /logging/level          返回当前级别
//	PUT /logging/level {level}  修改级别
func MountAdmin(r gin.IRouter, controller LevelController) {
	group := r.Group("/logging")

	group.GET("/level", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"level": controller.MinimumLevel().String()})
	})

	group.PUT("/level", func(c *gin.Context) {
		var req levelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		level, err := logging.ParseLogLevel(req.Level)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		controller.SetMinimumLevel(level)
		c.JSON(http.StatusOK, gin.H{"level": level.String()})
	})
}
