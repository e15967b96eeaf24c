// Package routes 注册HTTP路由
package routes

import (
	"github.com/gin-gonic/gin"

	"socratic_bot/internal/handlers"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, sessionHandler *handlers.SessionHandler, wsHandler *handlers.WSHandler) {
	// 健康检查
	r.GET("/health", sessionHandler.Health)

	// 会话生命周期
	r.POST("/upload-essay", sessionHandler.UploadEssay)
	r.POST("/start-session", sessionHandler.StartSession)
	r.POST("/end-session", sessionHandler.EndSession)
	r.GET("/sessions", sessionHandler.ListSessions)
	r.GET("/sessions/:id", sessionHandler.GetSession)
	r.GET("/microphones", sessionHandler.ListMicrophones)

	// 实时对话WebSocket
	r.GET("/ws/conversation", wsHandler.HandleConversation)
}
