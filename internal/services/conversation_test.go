package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"socratic_bot/internal/models"
	"socratic_bot/internal/types"
)

func newTestConversation(t *testing.T) *ConversationService {
	t.Helper()
	svc, err := NewConversationService(t.TempDir())
	if err != nil {
		t.Fatalf("创建会话服务失败: %v", err)
	}
	return svc
}

func TestConversationService_SaveAndLoad(t *testing.T) {
	svc := newTestConversation(t)

	metadata := models.EssayMetadata{Title: "On Justice", Author: "Student A", Pages: 3}
	sessionID := svc.StartSession("essay opening words", metadata)
	assert.NotEmpty(t, sessionID)

	_, err := svc.AddTurn(types.SpeakerBot, "Welcome, tell me your thesis.")
	assert.NoError(t, err)
	_, err = svc.AddTurn(types.SpeakerStudent, "Justice is fairness.")
	assert.NoError(t, err)

	record, err := svc.Load(sessionID)
	assert.NoError(t, err)
	assert.Equal(t, sessionID, record.SessionID)
	assert.Equal(t, "essay opening words", record.EssayContext)
	assert.Equal(t, "On Justice", record.EssayMetadata.Title)
	assert.Equal(t, 2, record.MessageCount)
	assert.Equal(t, 1, record.StudentMessageCount)
	assert.Equal(t, 1, record.BotMessageCount)
	assert.Equal(t, types.SpeakerBot, record.Turns[0].Speaker)
	assert.Equal(t, "Justice is fairness.", record.Turns[1].Text)
}

// TestConversationService_AddTurnPersists 每条发言追加后立即落盘
func TestConversationService_AddTurnPersists(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewConversationService(dir)
	assert.NoError(t, err)

	sessionID := svc.StartSession("ctx", models.EssayMetadata{})
	_, err = svc.AddTurn(types.SpeakerStudent, "first")
	assert.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, sessionID+".json"))
	assert.NoError(t, err)

	var record models.SessionRecord
	assert.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, 1, record.MessageCount)
}

func TestConversationService_History(t *testing.T) {
	svc := newTestConversation(t)
	svc.StartSession("ctx", models.EssayMetadata{})

	for _, text := range []string{"a", "b", "c"} {
		_, err := svc.AddTurn(types.SpeakerStudent, text)
		assert.NoError(t, err)
	}

	all := svc.History(0)
	assert.Len(t, all, 3)

	last2 := svc.History(2)
	assert.Len(t, last2, 2)
	assert.Equal(t, "b", last2[0].Text)
	assert.Equal(t, "c", last2[1].Text)
}

// TestConversationService_UniqueSessionIDs 同一秒开始的会话ID不重复，
// 存储文件互不覆盖
func TestConversationService_UniqueSessionIDs(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewConversationService(dir)
	assert.NoError(t, err)

	id1 := svc.StartSession("first", models.EssayMetadata{})
	_, err = svc.AddTurn(types.SpeakerStudent, "a")
	assert.NoError(t, err)

	id2 := svc.StartSession("second", models.EssayMetadata{})
	_, err = svc.AddTurn(types.SpeakerStudent, "b")
	assert.NoError(t, err)

	assert.NotEqual(t, id1, id2)

	// 两个会话文件都在
	_, err = os.Stat(filepath.Join(dir, id1+".json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, id2+".json"))
	assert.NoError(t, err)
}

func TestConversationService_ListSessions(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewConversationService(dir)
	assert.NoError(t, err)

	// 直接写入两个会话文件，文件名即时间戳会话ID
	writeRecord := func(id, title string) {
		record := models.SessionRecord{
			SessionID:     id,
			StartTime:     time.Now().UTC(),
			EssayMetadata: models.EssayMetadata{Title: title},
			MessageCount:  1,
		}
		data, err := json.Marshal(record)
		assert.NoError(t, err)
		assert.NoError(t, os.WriteFile(filepath.Join(dir, id+".json"), data, 0o644))
	}
	writeRecord("2026-01-01_10-00-00", "Older Essay")
	writeRecord("2026-01-02_10-00-00", "")

	// 损坏的文件应被跳过而非导致整个列表失败
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "2026-01-03_10-00-00.json"), []byte("{broken"), 0o644))

	summaries, err := svc.ListSessions()
	assert.NoError(t, err)
	assert.Len(t, summaries, 2)

	// 最新会话在前，空标题回退为Unknown
	assert.Equal(t, "2026-01-02_10-00-00", summaries[0].SessionID)
	assert.Equal(t, "Unknown", summaries[0].EssayTitle)
	assert.Equal(t, "Older Essay", summaries[1].EssayTitle)
}

func TestConversationService_ExportText(t *testing.T) {
	svc := newTestConversation(t)
	sessionID := svc.StartSession("essay context here", models.EssayMetadata{Title: "T"})

	_, err := svc.AddTurn(types.SpeakerStudent, "my claim")
	assert.NoError(t, err)
	_, err = svc.AddTurn(types.SpeakerBot, "why do you believe that?")
	assert.NoError(t, err)

	path, err := svc.ExportText()
	assert.NoError(t, err)

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	text := string(data)

	assert.True(t, strings.Contains(text, sessionID))
	assert.True(t, strings.Contains(text, "essay context here"))
	assert.True(t, strings.Contains(text, "STUDENT:"))
	assert.True(t, strings.Contains(text, "BOT:"))
	assert.True(t, strings.Contains(text, "Total messages: 2"))
}

func TestConversationService_NoActiveSession(t *testing.T) {
	svc := newTestConversation(t)

	_, err := svc.Save()
	assert.Error(t, err)

	_, err = svc.ExportText()
	assert.Error(t, err)
}

func TestConversationService_Clear(t *testing.T) {
	svc := newTestConversation(t)
	svc.StartSession("ctx", models.EssayMetadata{})
	_, err := svc.AddTurn(types.SpeakerStudent, "x")
	assert.NoError(t, err)

	svc.Clear()
	assert.Empty(t, svc.SessionID())
	assert.Equal(t, 0, svc.MessageCount())
}
