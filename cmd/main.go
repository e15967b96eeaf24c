package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"socratic_bot/internal/clients/ollama"
	"socratic_bot/internal/config"
	"socratic_bot/internal/handlers"
	"socratic_bot/internal/middleware"
	"socratic_bot/internal/routes"
	"socratic_bot/internal/services"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("苏格拉底对话机器人启动中...")

	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 创建Ollama客户端并检查连接
	ollamaClient := ollama.NewClient(ollama.Config{
		Host:        cfg.Ollama.Host,
		Model:       cfg.Ollama.Model,
		Temperature: cfg.Ollama.Temperature,
		TopP:        cfg.Ollama.TopP,
		MaxTokens:   cfg.Ollama.MaxTokens,
	})
	if ollamaClient.CheckConnection() {
		log.Printf("Ollama连接正常 (model=%s)", cfg.Ollama.Model)
	} else {
		log.Println("警告: Ollama服务器未运行，请先执行 ollama serve")
	}

	// 创建会话记录服务
	conversation, err := services.NewConversationService(cfg.Storage.ConversationDir)
	if err != nil {
		log.Fatalf("初始化会话存储失败: %v", err)
	}

	// 创建会话管理器和语音合成服务
	manager := services.NewSessionManager(cfg, conversation, ollamaClient)
	tts := services.NewTTSService(cfg.TTS)

	// 创建路由并注册中间件
	r := gin.New()
	middleware.Setup(r)

	sessionHandler := handlers.NewSessionHandler(cfg, manager, ollamaClient)
	wsHandler := handlers.NewWSHandler(cfg, manager, ollamaClient, tts)
	routes.RegisterRoutes(r, sessionHandler, wsHandler)

	// 启动HTTP服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("服务器启动: http://%s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("服务器启动失败: %v", err)
	}
}
