package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"socratic_bot/internal/models"
	"socratic_bot/internal/types"
)

// sessionIDLayout 会话ID的时间戳前缀格式。时间戳保证文件名倒序即时间倒序，
// 随机后缀避免同一秒开始的会话互相覆盖
const sessionIDLayout = "2006-01-02_15-04-05"

// ConversationService 会话记录服务，负责按时间序追加发言并持久化为JSON文件
type ConversationService struct {
	storageDir string

	mu            sync.RWMutex
	sessionID     string
	startTime     time.Time
	essayContext  string
	essayMetadata models.EssayMetadata
	turns         []models.ConversationTurn
}

// NewConversationService 创建新的会话记录服务
func NewConversationService(storageDir string) (*ConversationService, error) {
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %v", err)
	}
	return &ConversationService{storageDir: storageDir}, nil
}

// StartSession 开始新会话，返回"时间戳_随机后缀"格式的会话ID
func (s *ConversationService) StartSession(essayContext string, metadata models.EssayMetadata) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startTime = time.Now().UTC()
	s.sessionID = fmt.Sprintf("%s_%s", s.startTime.Format(sessionIDLayout), uuid.NewString()[:8])
	s.essayContext = essayContext
	s.essayMetadata = metadata
	s.turns = nil

	return s.sessionID
}

// SessionID 返回当前会话ID，无活动会话时为空字符串
func (s *ConversationService) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// EssayContext 返回当前会话的文稿上下文
func (s *ConversationService) EssayContext() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.essayContext
}

// AddTurn 追加一条发言并立即落盘。持久化失败时发言仍保留在内存中，
// 错误交由调用方处理（可重试，不要求去重）。
func (s *ConversationService) AddTurn(speaker types.Speaker, text string) (models.ConversationTurn, error) {
	s.mu.Lock()
	turn := models.ConversationTurn{
		Timestamp: time.Now().UTC(),
		Speaker:   speaker,
		Text:      text,
	}
	s.turns = append(s.turns, turn)
	s.mu.Unlock()

	// 每条发言都先落盘再继续，以崩溃安全换吞吐
	if _, err := s.Save(); err != nil {
		return turn, err
	}
	return turn, nil
}

// History 返回最近lastN条发言，lastN<=0表示全部
func (s *ConversationService) History(lastN int) []models.ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns
	if lastN > 0 && len(turns) > lastN {
		turns = turns[len(turns)-lastN:]
	}
	out := make([]models.ConversationTurn, len(turns))
	copy(out, turns)
	return out
}

// MessageCount 返回当前会话的发言总数
func (s *ConversationService) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// record 构建当前会话的持久化记录，调用方需持有读锁
func (s *ConversationService) record() models.SessionRecord {
	student, bot := 0, 0
	for _, turn := range s.turns {
		switch turn.Speaker {
		case types.SpeakerStudent:
			student++
		case types.SpeakerBot:
			bot++
		}
	}

	turns := make([]models.ConversationTurn, len(s.turns))
	copy(turns, s.turns)

	return models.SessionRecord{
		SessionID:           s.sessionID,
		StartTime:           s.startTime,
		DurationSeconds:     time.Now().UTC().Sub(s.startTime).Seconds(),
		EssayContext:        s.essayContext,
		EssayMetadata:       s.essayMetadata,
		Turns:               turns,
		MessageCount:        len(s.turns),
		StudentMessageCount: student,
		BotMessageCount:     bot,
	}
}

// Save 将当前会话写入JSON文件，返回文件路径
func (s *ConversationService) Save() (string, error) {
	s.mu.RLock()
	if s.sessionID == "" {
		s.mu.RUnlock()
		return "", fmt.Errorf("没有活动会话可保存")
	}
	record := s.record()
	s.mu.RUnlock()

	path := filepath.Join(s.storageDir, record.SessionID+".json")
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化会话失败: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("写入会话文件失败: %v", err)
	}
	return path, nil
}

// Load 按会话ID加载持久化记录
func (s *ConversationService) Load(sessionID string) (*models.SessionRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.storageDir, sessionID+".json"))
	if err != nil {
		return nil, fmt.Errorf("读取会话文件失败: %v", err)
	}

	var record models.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("解析会话文件失败: %v", err)
	}
	return &record, nil
}

// ListSessions 列出全部已保存会话的摘要，按时间倒序（最新在前）
func (s *ConversationService) ListSessions() ([]models.SessionSummary, error) {
	entries, err := os.ReadDir(s.storageDir)
	if err != nil {
		return nil, fmt.Errorf("读取存储目录失败: %v", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	// 会话ID是时间戳格式，文件名倒序即时间倒序
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	summaries := make([]models.SessionSummary, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.storageDir, name))
		if err != nil {
			continue
		}
		var record models.SessionRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		title := record.EssayMetadata.Title
		if title == "" {
			title = "Unknown"
		}
		summaries = append(summaries, models.SessionSummary{
			SessionID:    record.SessionID,
			StartTime:    record.StartTime,
			MessageCount: record.MessageCount,
			EssayTitle:   title,
		})
	}
	return summaries, nil
}

// ExportText 将当前会话导出为可读文本文件，返回文件路径
func (s *ConversationService) ExportText() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sessionID == "" {
		return "", fmt.Errorf("没有活动会话可导出")
	}

	var b strings.Builder
	separator := strings.Repeat("=", 70)

	fmt.Fprintf(&b, "Socratic Dialogue Session: %s\n", s.sessionID)
	fmt.Fprintf(&b, "Date: %s\n", s.startTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "%s\n\n", separator)

	fmt.Fprintf(&b, "ESSAY CONTEXT (First 500 words):\n%s\n", strings.Repeat("-", 70))
	fmt.Fprintf(&b, "%s\n\n%s\n\n", s.essayContext, separator)

	fmt.Fprintf(&b, "CONVERSATION:\n%s\n\n", strings.Repeat("-", 70))
	for _, turn := range s.turns {
		speaker := "STUDENT"
		if turn.Speaker == types.SpeakerBot {
			speaker = "BOT"
		}
		fmt.Fprintf(&b, "[%s] %s:\n%s\n\n", turn.Timestamp.Format("15:04:05"), speaker, turn.Text)
	}

	fmt.Fprintf(&b, "%s\nTotal messages: %d\n", separator, len(s.turns))

	path := filepath.Join(s.storageDir, s.sessionID+".txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("写入导出文件失败: %v", err)
	}
	return path, nil
}

// Clear 清除内存中的当前会话状态（文件保留）
func (s *ConversationService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = ""
	s.startTime = time.Time{}
	s.essayContext = ""
	s.essayMetadata = models.EssayMetadata{}
	s.turns = nil
}
