// Package handlers 提供HTTP和WebSocket请求处理器
package handlers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"socratic_bot/internal/audio"
	"socratic_bot/internal/clients/ollama"
	"socratic_bot/internal/config"
	"socratic_bot/internal/models"
	"socratic_bot/internal/services"
	"socratic_bot/internal/utils"
)

// SessionHandler 会话生命周期相关的HTTP处理器
type SessionHandler struct {
	cfg     *config.Config
	manager *services.SessionManager
	ollama  *ollama.Client
}

// StartSessionRequest 开始会话请求
type StartSessionRequest struct {
	WhisperModel  string  `json:"whisper_model"`
	PhraseTimeout float64 `json:"phrase_timeout"` // 静默超时(秒)
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(cfg *config.Config, manager *services.SessionManager, ollamaClient *ollama.Client) *SessionHandler {
	return &SessionHandler{
		cfg:     cfg,
		manager: manager,
		ollama:  ollamaClient,
	}
}

// Health 健康检查
func (h *SessionHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"ollama_connected": h.ollama.CheckConnection(),
		"essay_uploaded":   h.manager.EssayUploaded(),
		"session_active":   h.manager.SessionActive(),
	})
}

// UploadEssay 处理文稿上传并提取开头500词
func (h *SessionHandler) UploadEssay(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" && ext != ".txt" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "仅支持PDF或TXT文件"})
		return
	}

	if err := os.MkdirAll(h.cfg.Storage.UploadDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("创建上传目录失败: %v", err)})
		return
	}

	tempPath := filepath.Join(h.cfg.Storage.UploadDir, fmt.Sprintf("temp_%s%s", uuid.NewString(), ext))
	if err := c.SaveUploadedFile(file, tempPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("保存上传文件失败: %v", err)})
		return
	}
	defer os.Remove(tempPath)

	essayContext, metadata, err := parseEssay(tempPath, ext)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("解析文稿失败: %v", err)})
		return
	}
	metadata.Filename = file.Filename

	h.manager.SetEssay(essayContext, metadata)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  fmt.Sprintf("文稿处理完成: 提取了%d个词", len(strings.Fields(essayContext))),
		"metadata": metadata,
	})
}

// parseEssay 按扩展名解析文稿内容和元数据
func parseEssay(path, ext string) (string, models.EssayMetadata, error) {
	if ext == ".txt" {
		text, err := utils.ExtractTextFile(path, utils.DefaultEssayWords)
		if err != nil {
			return "", models.EssayMetadata{}, err
		}
		return text, models.EssayMetadata{Title: "Unknown", Author: "Unknown"}, nil
	}

	text, err := utils.ExtractFirstNWords(path, utils.DefaultEssayWords)
	if err != nil {
		return "", models.EssayMetadata{}, err
	}
	metadata, err := utils.ExtractMetadata(path)
	if err != nil {
		return "", models.EssayMetadata{}, err
	}
	return text, metadata, nil
}

// StartSession 初始化会话
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	timeout := time.Duration(req.PhraseTimeout * float64(time.Second))
	sessionID, greeting, err := h.manager.StartSession(c.Request.Context(), req.WhisperModel, timeout)
	if err != nil {
		log.Printf("开始会话失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"session_id":      sessionID,
		"initial_message": greeting,
	})
}

// EndSession 结束当前会话并保存记录
func (h *SessionHandler) EndSession(c *gin.Context) {
	result, err := h.manager.EndSession()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "会话已结束",
		"json_file":     result.JSONFile,
		"text_file":     result.TextFile,
		"message_count": result.MessageCount,
	})
}

// ListSessions 列出全部已保存会话
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.manager.Conversation().ListSessions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetSession 按ID获取会话详情
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	record, err := h.manager.Conversation().Load(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "会话不存在"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListMicrophones 列出可用的音频输入设备
func (h *SessionHandler) ListMicrophones(c *gin.Context) {
	devices, err := audio.ListDevices()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"microphones": devices})
}
