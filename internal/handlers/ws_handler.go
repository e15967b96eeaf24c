package handlers

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"socratic_bot/internal/clients/ollama"
	"socratic_bot/internal/config"
	"socratic_bot/internal/models"
	"socratic_bot/internal/services"
)

// WSHandler 对话WebSocket处理器
type WSHandler struct {
	cfg      *config.Config
	manager  *services.SessionManager
	ollama   *ollama.Client
	tts      models.TTSEngine
	upgrader websocket.Upgrader
}

// NewWSHandler 创建对话WebSocket处理器
func NewWSHandler(cfg *config.Config, manager *services.SessionManager, ollamaClient *ollama.Client, tts models.TTSEngine) *WSHandler {
	return &WSHandler{
		cfg:     cfg,
		manager: manager,
		ollama:  ollamaClient,
		tts:     tts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // 生产环境应实现适当的源检查
			},
		},
	}
}

// HandleConversation 处理实时对话WebSocket连接。
// 连接存续期间由编排器独占驱动会话，断开时清理采集资源。
func (h *WSHandler) HandleConversation(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("升级WebSocket连接失败: %v", err)
		return
	}
	defer conn.Close()

	sink := &wsEventSink{conn: conn}

	// 入口校验：必须存在活动会话和已初始化的断句器
	active, ok := h.manager.Active()
	if !ok || active.Segmenter == nil {
		_ = sink.Send(models.NewErrorEvent("没有活动会话"))
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// 登记连接，使EndSession能先停止编排循环再释放断句器
	release, err := h.manager.AttachConnection(cancel)
	if err != nil {
		_ = sink.Send(models.NewErrorEvent(err.Error()))
		return
	}
	defer release()

	// 后台读取循环只用于感知客户端断开（核心协议不要求客户端消息）
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	orchestrator := services.NewDialogOrchestrator(
		sink,
		h.manager.Conversation(),
		h.ollama,
		active.Segmenter,
		active.Source,
		active.Queue,
		h.tts,
		h.cfg.Audio.TickInterval.Std(),
	)
	orchestrator.Run(ctx)

	log.Printf("WebSocket连接已关闭: %s", conn.RemoteAddr())
}

// wsEventSink 将事件序列化为JSON帧写入WebSocket连接
type wsEventSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Send 发送单个事件，写失败视为连接断开
func (s *wsEventSink) Send(event models.DialogEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(event)
}
