package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"socratic_bot/internal/audio"
	"socratic_bot/internal/clients/ollama"
	"socratic_bot/internal/clients/whisper"
	"socratic_bot/internal/config"
	"socratic_bot/internal/models"
	"socratic_bot/internal/types"
)

// defaultGreeting Ollama开场白生成失败时的兜底问候语
const defaultGreeting = "Hello! Let's discuss your essay."

// ActiveSession 一个活动会话持有的运行资源。
// 连接建立时整体交给编排器，连接关闭时所有权随之结束。
type ActiveSession struct {
	Queue     *audio.Queue
	Source    audio.Source
	Segmenter *PhraseSegmenter
}

// EndSessionResult 结束会话的返回结果
type EndSessionResult struct {
	JSONFile     string `json:"json_file"`
	TextFile     string `json:"text_file"`
	MessageCount int    `json:"message_count"`
}

// SessionManager 会话生命周期管理器。持有文稿上传状态和活动会话资源，
// 替代跨连接共享的全局状态。
type SessionManager struct {
	cfg          *config.Config
	conversation *ConversationService
	ollama       *ollama.Client

	mu            sync.Mutex
	essayUploaded bool
	essayContext  string
	essayMetadata models.EssayMetadata
	active        *ActiveSession

	// 活动连接的停止句柄。断句器状态只归编排循环所有，
	// EndSession必须先停循环再释放资源
	connCancel context.CancelFunc
	connDone   chan struct{}
}

// NewSessionManager 创建新的会话管理器
func NewSessionManager(cfg *config.Config, conversation *ConversationService, ollamaClient *ollama.Client) *SessionManager {
	return &SessionManager{
		cfg:          cfg,
		conversation: conversation,
		ollama:       ollamaClient,
	}
}

// SetEssay 记录上传的文稿内容和元数据
func (m *SessionManager) SetEssay(essayContext string, metadata models.EssayMetadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.essayUploaded = true
	m.essayContext = essayContext
	m.essayMetadata = metadata
}

// EssayUploaded 返回是否已上传文稿
func (m *SessionManager) EssayUploaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.essayUploaded
}

// SessionActive 返回是否存在活动会话
func (m *SessionManager) SessionActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Active 返回活动会话资源
func (m *SessionManager) Active() (*ActiveSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != nil
}

// Conversation 返回会话记录服务
func (m *SessionManager) Conversation() *ConversationService {
	return m.conversation
}

// AttachConnection 登记对话连接的取消函数，一个会话同时只允许一个连接。
// 返回的注销函数必须在编排循环退出后调用。
func (m *SessionManager) AttachConnection(cancel context.CancelFunc) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, fmt.Errorf("没有活动会话")
	}
	if m.connCancel != nil {
		return nil, fmt.Errorf("会话已有连接")
	}

	done := make(chan struct{})
	m.connCancel = cancel
	m.connDone = done

	return func() {
		close(done)
		m.mu.Lock()
		m.connCancel = nil
		m.connDone = nil
		m.mu.Unlock()
	}, nil
}

// StartSession 初始化新会话：检查Ollama连接、生成开场白、
// 构建断句器和音频采集源。返回会话ID和开场白。
func (m *SessionManager) StartSession(ctx context.Context, whisperModel string, phraseTimeout time.Duration) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.essayUploaded {
		return "", "", fmt.Errorf("尚未上传文稿")
	}
	if m.active != nil {
		return "", "", fmt.Errorf("已存在活动会话")
	}
	if !m.ollama.CheckConnection() {
		return "", "", fmt.Errorf("Ollama服务器不可用")
	}

	if whisperModel == "" {
		whisperModel = m.cfg.Whisper.Model
	}
	if phraseTimeout <= 0 {
		phraseTimeout = m.cfg.Audio.PhraseTimeout.Std()
	}

	sessionID := m.conversation.StartSession(m.essayContext, m.essayMetadata)
	log.Printf("会话已开始: %s (model=%s, phrase_timeout=%s)", sessionID, whisperModel, phraseTimeout)

	// 获取开场白，失败时使用兜底问候语
	greeting, err := m.ollama.InitializeContext(ctx, m.essayContext)
	if err != nil || greeting == "" {
		log.Printf("生成开场白失败，使用默认问候: %v", err)
		greeting = defaultGreeting
	}
	if _, err := m.conversation.AddTurn(types.SpeakerBot, greeting); err != nil {
		log.Printf("保存开场白失败: %v", err)
	}

	engine := whisper.NewClient(whisper.Config{
		ServerURL:  m.cfg.Whisper.ServerURL,
		Model:      whisperModel,
		SampleRate: m.cfg.Whisper.SampleRate,
	})

	source, err := audio.NewSource(m.cfg.Audio, m.cfg.Whisper.SampleRate)
	if err != nil {
		m.conversation.Clear()
		return "", "", fmt.Errorf("创建音频采集源失败: %v", err)
	}

	queue := audio.NewQueue()
	m.active = &ActiveSession{
		Queue:     queue,
		Source:    source,
		Segmenter: NewPhraseSegmenter(engine, queue, phraseTimeout),
	}

	return sessionID, greeting, nil
}

// EndSession 结束当前会话：先停止编排循环，再落盘、导出文本、
// 停止采集并释放资源
func (m *SessionManager) EndSession() (*EndSessionResult, error) {
	m.mu.Lock()
	if m.active == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("没有活动会话")
	}
	cancel, done := m.connCancel, m.connDone
	m.mu.Unlock()

	// 断句器的可变状态只归编排循环所有：
	// 等循环完全退出后才能安全重置和释放
	if cancel != nil {
		cancel()
		<-done
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, fmt.Errorf("没有活动会话")
	}

	jsonFile, err := m.conversation.Save()
	if err != nil {
		return nil, err
	}
	textFile, err := m.conversation.ExportText()
	if err != nil {
		return nil, err
	}

	if err := m.active.Source.Stop(); err != nil {
		log.Printf("停止音频采集失败: %v", err)
	}
	m.active.Segmenter.Reset()
	m.active = nil

	result := &EndSessionResult{
		JSONFile:     jsonFile,
		TextFile:     textFile,
		MessageCount: m.conversation.MessageCount(),
	}
	m.conversation.Clear()

	log.Printf("会话已结束: %s", jsonFile)
	return result, nil
}
