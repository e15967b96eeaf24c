package models

import "context"

// ASREngine 语音识别引擎接口，同步整段转写
type ASREngine interface {
	// Transcribe 转写一段完整的PCM音频，可能返回空字符串
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}

// TTSEngine 语音合成引擎接口（当前功能默认关闭）
type TTSEngine interface {
	// Speak 异步朗读文本
	Speak(text string) error

	// Enabled 返回语音合成是否启用
	Enabled() bool
}
