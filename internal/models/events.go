package models

import (
	"time"

	"socratic_bot/internal/types"
)

// DialogEvent 服务端推送给客户端的事件，封闭联合类型
type DialogEvent interface {
	EventType() string
}

// ReadyEvent 监听就绪事件
type ReadyEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// StatusEvent 会话状态事件
type StatusEvent struct {
	Type          string       `json:"type"`
	Status        types.Status `json:"status"`
	TimeRemaining float64      `json:"time_remaining,omitempty"` // 仅pausing状态携带
}

// TranscriptionEvent 转写文本事件
type TranscriptionEvent struct {
	Type           string    `json:"type"`
	Text           string    `json:"text"`
	PhraseComplete bool      `json:"phrase_complete"`
	Timestamp      time.Time `json:"timestamp"`
}

// ResponseChunkEvent 模型回复增量片段事件
type ResponseChunkEvent struct {
	Type      string    `json:"type"`
	Chunk     string    `json:"chunk"`
	Timestamp time.Time `json:"timestamp"`
}

// ResponseCompleteEvent 模型回复完成事件
type ResponseCompleteEvent struct {
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEvent 错误事件
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// EventType 返回事件类型标签
func (e ReadyEvent) EventType() string            { return e.Type }
func (e StatusEvent) EventType() string           { return e.Type }
func (e TranscriptionEvent) EventType() string    { return e.Type }
func (e ResponseChunkEvent) EventType() string    { return e.Type }
func (e ResponseCompleteEvent) EventType() string { return e.Type }
func (e ErrorEvent) EventType() string            { return e.Type }

// NewReadyEvent 创建监听就绪事件
func NewReadyEvent(message string) ReadyEvent {
	return ReadyEvent{Type: "ready", Message: message}
}

// NewStatusEvent 创建会话状态事件
func NewStatusEvent(status types.Status) StatusEvent {
	return StatusEvent{Type: "status", Status: status}
}

// NewPausingEvent 创建静默倒计时事件
func NewPausingEvent(timeRemaining float64) StatusEvent {
	return StatusEvent{Type: "status", Status: types.StatusPausing, TimeRemaining: timeRemaining}
}

// NewTranscriptionEvent 创建转写文本事件
func NewTranscriptionEvent(text string, phraseComplete bool, ts time.Time) TranscriptionEvent {
	return TranscriptionEvent{Type: "transcription", Text: text, PhraseComplete: phraseComplete, Timestamp: ts}
}

// NewResponseChunkEvent 创建回复增量片段事件
func NewResponseChunkEvent(chunk string, ts time.Time) ResponseChunkEvent {
	return ResponseChunkEvent{Type: "bot_response_chunk", Chunk: chunk, Timestamp: ts}
}

// NewResponseCompleteEvent 创建回复完成事件
func NewResponseCompleteEvent(text string, ts time.Time) ResponseCompleteEvent {
	return ResponseCompleteEvent{Type: "bot_response_complete", Text: text, Timestamp: ts}
}

// NewErrorEvent 创建错误事件
func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: "error", Message: message}
}
