package services

import (
	"log"

	"socratic_bot/internal/config"
)

// TTSService 语音合成服务。当前实现为占位：配置默认关闭，
// 启用时也只记录日志，不产生音频输出。
type TTSService struct {
	enabled bool
	rate    int
	volume  float64
}

// NewTTSService 根据配置创建语音合成服务
func NewTTSService(cfg config.TTSConfig) *TTSService {
	return &TTSService{
		enabled: cfg.Enabled,
		rate:    cfg.Rate,
		volume:  cfg.Volume,
	}
}

// Enabled 返回语音合成是否启用
func (s *TTSService) Enabled() bool {
	return s.enabled
}

// Speak 异步朗读文本
func (s *TTSService) Speak(text string) error {
	if !s.enabled {
		return nil
	}
	log.Printf("TTS朗读(rate=%d, volume=%.1f): %s", s.rate, s.volume, text)
	return nil
}
