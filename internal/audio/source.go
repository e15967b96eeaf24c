package audio

import (
	"context"
	"fmt"
	"time"

	"socratic_bot/internal/config"
)

// Source 音频采集源接口。实现在后台持续采集短音频段并推入共享队列，
// 永不因下游处理速度而阻塞。
type Source interface {
	// Start 启动后台采集，音频块推入queue；ctx取消后采集停止
	Start(ctx context.Context, queue *Queue) error

	// Stop 停止采集并释放资源，可重复调用
	Stop() error
}

// Device 音频输入设备信息
type Device struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}

// NewSource 根据配置创建音频采集源
func NewSource(cfg config.AudioConfig, sampleRate int) (Source, error) {
	switch cfg.Source {
	case "pulse":
		return NewPulseSource(cfg.Device, sampleRate, cfg.RecordWindow.Std()), nil
	case "pcap":
		return NewPcapSource(cfg.PcapFile), nil
	default:
		return nil, fmt.Errorf("不支持的音频采集源: %s", cfg.Source)
	}
}

// chunkBytes 计算一个采集窗口对应的PCM字节数(16bit单声道)
func chunkBytes(sampleRate int, window time.Duration) int {
	n := int(float64(sampleRate) * window.Seconds() * 2)
	if n <= 0 {
		n = sampleRate / 2
	}
	return n
}
