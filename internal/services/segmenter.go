// Package services 提供断句、会话管理和对话编排服务
package services

import (
	"context"
	"time"

	"socratic_bot/internal/audio"
	"socratic_bot/internal/models"
	"socratic_bot/internal/types"
)

// SegmentResult 一次断句轮询的结果，Kind为封闭枚举，每次轮询恰好一个变体
type SegmentResult struct {
	Kind          types.SegmentKind // 结果类型
	Text          string            // 转写文本(Live/Complete时有效)
	TimeRemaining float64           // 剩余静默秒数(Pausing时有效)
	Timestamp     time.Time         // 本次轮询时间
}

// PhraseSegmenter 短语断句状态机。
// 累积队列中的音频，说话者持续静默达到pauseTimeout后定稿一条短语。
// 状态流转: IDLE → ACTIVE(有音频到达) → PAUSING(静默倒计时) → 回到ACTIVE或定稿回IDLE。
// 不变式: phraseBytes非空 当且仅当 phraseTime已设置。
type PhraseSegmenter struct {
	engine       models.ASREngine
	queue        *audio.Queue
	pauseTimeout time.Duration

	phraseBytes []byte
	phraseTime  time.Time // 最后一次收到音频的时间，零值表示未设置
}

// NewPhraseSegmenter 创建新的断句状态机
func NewPhraseSegmenter(engine models.ASREngine, queue *audio.Queue, pauseTimeout time.Duration) *PhraseSegmenter {
	return &PhraseSegmenter{
		engine:       engine,
		queue:        queue,
		pauseTimeout: pauseTimeout,
	}
}

// PauseTimeout 返回配置的静默超时
func (s *PhraseSegmenter) PauseTimeout() time.Duration {
	return s.pauseTimeout
}

// Tick 执行一次断句轮询。每次轮询最多一次转写调用；转写耗时越长，
// 轮询节奏自然被拉慢，这是有意的背压机制，转写本身不设超时。
// 转写失败时状态保持不变，错误向上传递，下一次轮询重试。
func (s *PhraseSegmenter) Tick(ctx context.Context, now time.Time) (SegmentResult, error) {
	// 第一优先级：有新音频到达，无条件重置静默倒计时
	if data := s.queue.Drain(); len(data) > 0 {
		s.phraseBytes = append(s.phraseBytes, data...)
		s.phraseTime = now

		// 整段重转写而非增量追加：增长中的语音其转写并非旧转写的前缀，
		// 整段重算才能保证实时文本一致
		text, err := s.engine.Transcribe(ctx, s.phraseBytes)
		if err != nil {
			return SegmentResult{}, err
		}

		return SegmentResult{Kind: types.SegmentLive, Text: text, Timestamp: now}, nil
	}

	// 没有累积音频，无事可做
	if len(s.phraseBytes) == 0 {
		return SegmentResult{Kind: types.SegmentNone, Timestamp: now}, nil
	}

	// 静默倒计时
	elapsed := now.Sub(s.phraseTime)
	if elapsed >= s.pauseTimeout {
		text, err := s.engine.Transcribe(ctx, s.phraseBytes)
		if err != nil {
			return SegmentResult{}, err
		}

		// 定稿后回到IDLE
		s.phraseBytes = nil
		s.phraseTime = time.Time{}

		return SegmentResult{Kind: types.SegmentComplete, Text: text, Timestamp: now}, nil
	}

	remaining := (s.pauseTimeout - elapsed).Seconds()
	return SegmentResult{Kind: types.SegmentPausing, TimeRemaining: remaining, Timestamp: now}, nil
}

// Reset 清空累积状态，回到IDLE
func (s *PhraseSegmenter) Reset() {
	s.phraseBytes = nil
	s.phraseTime = time.Time{}
}
