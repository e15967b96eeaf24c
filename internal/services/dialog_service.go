package services

import (
	"context"
	"log"
	"strings"
	"time"

	"socratic_bot/internal/audio"
	"socratic_bot/internal/models"
	"socratic_bot/internal/types"
)

const (
	// defaultTickInterval 对话循环默认轮询间隔
	defaultTickInterval = 250 * time.Millisecond

	// pausingNotifyInterval 静默倒计时事件的最小发送间隔，合并高频重复
	pausingNotifyInterval = 500 * time.Millisecond

	// historyDepth 构建提示词时携带的最近发言条数
	historyDepth = 10
)

// EventSink 客户端事件发送端。事件按发送顺序送达，发送失败视为连接断开
type EventSink interface {
	Send(event models.DialogEvent) error
}

// LLMStreamer 模型流式回复接口
type LLMStreamer interface {
	// SocraticStream 流式生成回复，每个片段回调一次
	SocraticStream(ctx context.Context, studentInput, essayContext string, history []models.ConversationTurn, callback func(chunk string) error) error
}

// DialogOrchestrator 对话编排器。以固定节奏驱动断句状态机，
// 将断句结果翻译为客户端事件，并在短语完成时完成一轮模型问答。
// 一个编排器实例服务恰好一个客户端连接和一个断句器，不跨会话共享。
type DialogOrchestrator struct {
	sink         EventSink
	conversation *ConversationService
	llm          LLMStreamer
	segmenter    *PhraseSegmenter
	source       audio.Source
	queue        *audio.Queue
	tts          models.TTSEngine

	tickInterval time.Duration
	now          func() time.Time

	// 实时转写去重与倒计时事件合并状态
	lastLiveText  string
	lastPausingAt time.Time
}

// NewDialogOrchestrator 创建新的对话编排器
func NewDialogOrchestrator(
	sink EventSink,
	conversation *ConversationService,
	llm LLMStreamer,
	segmenter *PhraseSegmenter,
	source audio.Source,
	queue *audio.Queue,
	tts models.TTSEngine,
	tickInterval time.Duration,
) *DialogOrchestrator {
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}
	return &DialogOrchestrator{
		sink:         sink,
		conversation: conversation,
		llm:          llm,
		segmenter:    segmenter,
		source:       source,
		queue:        queue,
		tts:          tts,
		tickInterval: tickInterval,
		now:          time.Now,
	}
}

// Run 运行对话循环直到连接断开或ctx取消。
// 任何情况下退出前都会停止采集并释放断句器状态，不向调用方抛出错误。
func (o *DialogOrchestrator) Run(ctx context.Context) {
	defer func() {
		if err := o.source.Stop(); err != nil {
			log.Printf("停止音频采集失败: %v", err)
		}
		o.segmenter.Reset()
	}()

	// 启动音频采集
	if err := o.source.Start(ctx, o.queue); err != nil {
		log.Printf("启动音频采集失败: %v", err)
		_ = o.sink.Send(models.NewErrorEvent(err.Error()))
		return
	}

	if err := o.sink.Send(models.NewReadyEvent("Listening started")); err != nil {
		return
	}

	// 回放已有会话历史，便于客户端重连后重建状态
	if err := o.replayHistory(); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := o.step(ctx, o.now()); err != nil {
			// 发送失败或连接断开，正常收尾
			return
		}

		// 在轮询间隔内让出，这是循环中除网络IO外唯一的挂起点
		select {
		case <-ctx.Done():
			return
		case <-time.After(o.tickInterval):
		}
	}
}

// replayHistory 按序重放全部历史发言
func (o *DialogOrchestrator) replayHistory() error {
	for _, turn := range o.conversation.History(0) {
		var event models.DialogEvent
		if turn.Speaker == types.SpeakerBot {
			event = models.NewResponseCompleteEvent(turn.Text, turn.Timestamp)
		} else {
			event = models.NewTranscriptionEvent(turn.Text, true, turn.Timestamp)
		}
		if err := o.sink.Send(event); err != nil {
			return err
		}
	}
	return nil
}

// step 执行一次轮询：驱动断句器并分发结果。
// 返回非nil错误表示连接已不可用，循环应当退出。
func (o *DialogOrchestrator) step(ctx context.Context, now time.Time) error {
	result, err := o.segmenter.Tick(ctx, now)
	if err != nil {
		// 后端瞬时故障：通知客户端后会话继续存活
		log.Printf("断句轮询失败: %v", err)
		return o.sink.Send(models.NewErrorEvent(err.Error()))
	}

	switch result.Kind {
	case types.SegmentNone:
		return nil

	case types.SegmentPausing:
		// 合并高频倒计时事件，至多每500ms发送一次
		if !o.lastPausingAt.IsZero() && now.Sub(o.lastPausingAt) < pausingNotifyInterval {
			return nil
		}
		o.lastPausingAt = now
		return o.sink.Send(models.NewPausingEvent(result.TimeRemaining))

	case types.SegmentLive:
		// 只转发发生变化的实时转写
		if result.Text == "" || result.Text == o.lastLiveText {
			return nil
		}
		o.lastLiveText = result.Text
		o.lastPausingAt = time.Time{}
		if err := o.sink.Send(models.NewTranscriptionEvent(result.Text, false, result.Timestamp)); err != nil {
			return err
		}
		return o.sink.Send(models.NewStatusEvent(types.StatusListening))

	case types.SegmentComplete:
		// 空短语直接丢弃，不产生会话记录也不请求模型
		if strings.TrimSpace(result.Text) == "" {
			o.resetPhraseState()
			return o.sink.Send(models.NewStatusEvent(types.StatusListening))
		}
		return o.handlePhrase(ctx, result)
	}

	return nil
}

// handlePhrase 完成一条短语的完整问答回合：
// 记录学生发言 → 流式请求模型 → 记录机器人回复 → 持久化
func (o *DialogOrchestrator) handlePhrase(ctx context.Context, result SegmentResult) error {
	if err := o.sink.Send(models.NewTranscriptionEvent(result.Text, true, result.Timestamp)); err != nil {
		return err
	}

	if _, err := o.conversation.AddTurn(types.SpeakerStudent, result.Text); err != nil {
		log.Printf("保存学生发言失败: %v", err)
	}

	if err := o.sink.Send(models.NewStatusEvent(types.StatusAnalyzing)); err != nil {
		return err
	}

	history := o.conversation.History(historyDepth)

	if err := o.sink.Send(models.NewStatusEvent(types.StatusResponding)); err != nil {
		return err
	}

	// 流式转发模型回复并累积完整文本
	var full strings.Builder
	err := o.llm.SocraticStream(ctx, result.Text, o.conversation.EssayContext(), history, func(chunk string) error {
		full.WriteString(chunk)
		return o.sink.Send(models.NewResponseChunkEvent(chunk, o.now()))
	})
	if err != nil {
		return err
	}

	fullText := full.String()
	if err := o.sink.Send(models.NewResponseCompleteEvent(fullText, o.now())); err != nil {
		return err
	}

	if _, err := o.conversation.AddTurn(types.SpeakerBot, fullText); err != nil {
		log.Printf("保存机器人回复失败: %v", err)
	}

	if o.tts != nil && o.tts.Enabled() {
		if err := o.tts.Speak(fullText); err != nil {
			log.Printf("语音合成失败: %v", err)
		}
	}

	o.resetPhraseState()
	return o.sink.Send(models.NewStatusEvent(types.StatusListening))
}

// resetPhraseState 一轮短语结束后重置去重与合并状态
func (o *DialogOrchestrator) resetPhraseState() {
	o.lastLiveText = ""
	o.lastPausingAt = time.Time{}
}
