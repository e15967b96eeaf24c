// Package models 定义对话领域模型和服务接口
package models

import (
	"time"

	"socratic_bot/internal/types"
)

// EssayMetadata 上传文稿的元数据
type EssayMetadata struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Pages    int    `json:"pages"`
	Filename string `json:"filename,omitempty"`
}

// ConversationTurn 会话中的一条发言记录，追加后不可变
type ConversationTurn struct {
	Timestamp     time.Time         `json:"timestamp"`                // 发言时间(UTC)
	Speaker       types.Speaker     `json:"speaker"`                  // 发言方: student/bot
	Text          string            `json:"text"`                     // 发言内容
	AudioDuration float64           `json:"audio_duration,omitempty"` // 音频时长(秒)
	Metadata      map[string]string `json:"metadata,omitempty"`       // 附加元数据
}

// SessionRecord 会话持久化记录，每个会话对应一个JSON文件
type SessionRecord struct {
	SessionID           string             `json:"session_id"`
	StartTime           time.Time          `json:"start_time"`
	DurationSeconds     float64            `json:"duration_seconds"`
	EssayContext        string             `json:"essay_context"`
	EssayMetadata       EssayMetadata      `json:"essay_metadata"`
	Turns               []ConversationTurn `json:"turns"`
	MessageCount        int                `json:"message_count"`
	StudentMessageCount int                `json:"student_message_count"`
	BotMessageCount     int                `json:"bot_message_count"`
}

// SessionSummary 会话列表摘要
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	StartTime    time.Time `json:"start_time"`
	MessageCount int       `json:"message_count"`
	EssayTitle   string    `json:"essay_title"`
}
