package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"socratic_bot/internal/audio"
	"socratic_bot/internal/models"
	"socratic_bot/internal/types"
)

// recordSink 记录全部发送事件的测试接收端
type recordSink struct {
	events []models.DialogEvent
}

func (s *recordSink) Send(event models.DialogEvent) error {
	s.events = append(s.events, event)
	return nil
}

// types 返回已记录事件的类型标签序列
func (s *recordSink) types() []string {
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.EventType()
	}
	return out
}

// fakeStreamer 按预设片段回调的测试模型
type fakeStreamer struct {
	chunks     []string
	calls      int
	gotInput   string
	gotHistory []models.ConversationTurn
}

func (f *fakeStreamer) SocraticStream(_ context.Context, studentInput, _ string, history []models.ConversationTurn, callback func(chunk string) error) error {
	f.calls++
	f.gotInput = studentInput
	f.gotHistory = history
	for _, chunk := range f.chunks {
		if err := callback(chunk); err != nil {
			return err
		}
	}
	return nil
}

// nopSource 不产生音频的测试采集源
type nopSource struct {
	started bool
	stopped bool
}

func (s *nopSource) Start(_ context.Context, _ *audio.Queue) error {
	s.started = true
	return nil
}

func (s *nopSource) Stop() error {
	s.stopped = true
	return nil
}

// newTestOrchestrator 构建带同步时钟的编排器及其依赖
func newTestOrchestrator(t *testing.T, asr *fakeASR, llm *fakeStreamer) (*DialogOrchestrator, *recordSink, *audio.Queue, *ConversationService) {
	t.Helper()

	sink := &recordSink{}
	queue := audio.NewQueue()
	conversation := newTestConversation(t)
	conversation.StartSession("essay context", models.EssayMetadata{Title: "T"})

	segmenter := NewPhraseSegmenter(asr, queue, 5*time.Second)
	o := NewDialogOrchestrator(sink, conversation, llm, segmenter, &nopSource{}, queue, nil, 0)
	return o, sink, queue, conversation
}

func TestDialogOrchestrator_LiveDedupe(t *testing.T) {
	asr := &fakeASR{fn: func(pcm []byte) (string, error) { return "hello", nil }}
	llm := &fakeStreamer{}
	o, sink, queue, _ := newTestOrchestrator(t, asr, llm)

	base := time.Now()
	ctx := context.Background()

	queue.Push([]byte{1})
	assert.NoError(t, o.step(ctx, base))
	assert.Equal(t, []string{"transcription", "status"}, sink.types())

	transcription := sink.events[0].(models.TranscriptionEvent)
	assert.Equal(t, "hello", transcription.Text)
	assert.False(t, transcription.PhraseComplete)

	// 转写文本未变化时不重复转发
	queue.Push([]byte{2})
	assert.NoError(t, o.step(ctx, base.Add(250*time.Millisecond)))
	assert.Len(t, sink.events, 2)

	// 文本变化后再次转发
	asr.fn = func(pcm []byte) (string, error) { return "hello world", nil }
	queue.Push([]byte{3})
	assert.NoError(t, o.step(ctx, base.Add(500*time.Millisecond)))
	assert.Equal(t, []string{"transcription", "status", "transcription", "status"}, sink.types())
}

func TestDialogOrchestrator_PausingCoalesce(t *testing.T) {
	asr := &fakeASR{fn: func(pcm []byte) (string, error) { return "hi", nil }}
	llm := &fakeStreamer{}
	o, sink, queue, _ := newTestOrchestrator(t, asr, llm)

	base := time.Now()
	ctx := context.Background()

	queue.Push([]byte{1})
	assert.NoError(t, o.step(ctx, base))
	before := len(sink.events)

	// 第一个倒计时事件立即发送
	assert.NoError(t, o.step(ctx, base.Add(1*time.Second)))
	assert.Len(t, sink.events, before+1)
	pausing := sink.events[before].(models.StatusEvent)
	assert.Equal(t, types.StatusPausing, pausing.Status)
	assert.InDelta(t, 4.0, pausing.TimeRemaining, 0.001)

	// 间隔不足500ms的倒计时事件被合并
	assert.NoError(t, o.step(ctx, base.Add(1250*time.Millisecond)))
	assert.Len(t, sink.events, before+1)

	// 间隔达到500ms后恢复发送
	assert.NoError(t, o.step(ctx, base.Add(1600*time.Millisecond)))
	assert.Len(t, sink.events, before+2)
}

// TestDialogOrchestrator_EmptyPhraseDropped 空短语直接丢弃，不请求模型也不记录
func TestDialogOrchestrator_EmptyPhraseDropped(t *testing.T) {
	asr := &fakeASR{fn: func(pcm []byte) (string, error) { return "   ", nil }}
	llm := &fakeStreamer{chunks: []string{"should not appear"}}
	o, sink, queue, conversation := newTestOrchestrator(t, asr, llm)

	base := time.Now()
	ctx := context.Background()

	queue.Push([]byte{1})
	assert.NoError(t, o.step(ctx, base))
	countBefore := len(sink.events)

	// 静默满5秒定稿，但转写结果为空白
	assert.NoError(t, o.step(ctx, base.Add(5*time.Second)))

	assert.Equal(t, 0, llm.calls, "空短语不应请求模型")
	assert.Equal(t, 0, conversation.MessageCount(), "空短语不应产生会话记录")

	// 仅回到listening状态
	last := sink.events[len(sink.events)-1].(models.StatusEvent)
	assert.Equal(t, types.StatusListening, last.Status)
	assert.Len(t, sink.events, countBefore+1)
}

func TestDialogOrchestrator_PhraseRoundTrip(t *testing.T) {
	asr := &fakeASR{fn: func(pcm []byte) (string, error) { return "What is justice?", nil }}
	llm := &fakeStreamer{chunks: []string{"Why do you ", "ask that?"}}
	o, sink, queue, conversation := newTestOrchestrator(t, asr, llm)

	base := time.Now()
	o.now = func() time.Time { return base }
	ctx := context.Background()

	queue.Push([]byte{1})
	assert.NoError(t, o.step(ctx, base))
	sink.events = nil

	// 短语定稿触发完整问答回合
	assert.NoError(t, o.step(ctx, base.Add(5*time.Second)))

	assert.Equal(t, []string{
		"transcription",
		"status", // analyzing
		"status", // responding
		"bot_response_chunk",
		"bot_response_chunk",
		"bot_response_complete",
		"status", // listening
	}, sink.types())

	final := sink.events[0].(models.TranscriptionEvent)
	assert.True(t, final.PhraseComplete)
	assert.Equal(t, "What is justice?", final.Text)

	assert.Equal(t, types.StatusAnalyzing, sink.events[1].(models.StatusEvent).Status)
	assert.Equal(t, types.StatusResponding, sink.events[2].(models.StatusEvent).Status)

	// 片段拼接与完成事件文本一致
	complete := sink.events[5].(models.ResponseCompleteEvent)
	assert.Equal(t, "Why do you ask that?", complete.Text)

	assert.Equal(t, types.StatusListening, sink.events[6].(models.StatusEvent).Status)

	// 模型收到的历史包含刚追加的学生发言
	assert.Equal(t, "What is justice?", llm.gotInput)
	assert.Len(t, llm.gotHistory, 1)
	assert.Equal(t, types.SpeakerStudent, llm.gotHistory[0].Speaker)

	// 会话记录：学生发言+机器人回复，均已持久化
	turns := conversation.History(0)
	assert.Len(t, turns, 2)
	assert.Equal(t, "What is justice?", turns[0].Text)
	assert.Equal(t, "Why do you ask that?", turns[1].Text)
	assert.Equal(t, types.SpeakerBot, turns[1].Speaker)
}

func TestDialogOrchestrator_ReplayHistory(t *testing.T) {
	asr := &fakeASR{}
	llm := &fakeStreamer{}
	o, sink, _, conversation := newTestOrchestrator(t, asr, llm)

	_, err := conversation.AddTurn(types.SpeakerBot, "Welcome!")
	assert.NoError(t, err)
	_, err = conversation.AddTurn(types.SpeakerStudent, "My thesis is X.")
	assert.NoError(t, err)

	assert.NoError(t, o.replayHistory())

	assert.Equal(t, []string{"bot_response_complete", "transcription"}, sink.types())
	assert.Equal(t, "Welcome!", sink.events[0].(models.ResponseCompleteEvent).Text)

	replayed := sink.events[1].(models.TranscriptionEvent)
	assert.Equal(t, "My thesis is X.", replayed.Text)
	assert.True(t, replayed.PhraseComplete)
}

// TestDialogOrchestrator_Run 循环启动采集、发送ready事件，取消后正常收尾
func TestDialogOrchestrator_Run(t *testing.T) {
	asr := &fakeASR{}
	llm := &fakeStreamer{}

	sink := &recordSink{}
	queue := audio.NewQueue()
	conversation := newTestConversation(t)
	conversation.StartSession("ctx", models.EssayMetadata{})

	source := &nopSource{}
	segmenter := NewPhraseSegmenter(asr, queue, 5*time.Second)
	o := NewDialogOrchestrator(sink, conversation, llm, segmenter, source, queue, nil, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	o.Run(ctx)

	assert.True(t, source.started)
	assert.True(t, source.stopped, "退出时必须停止采集")
	assert.NotEmpty(t, sink.events)
	assert.Equal(t, "ready", sink.events[0].EventType())
}
