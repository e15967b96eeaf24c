package config

import "errors"

// 配置相关错误定义
var (
	ErrInvalidServerPort    = errors.New("服务器端口必须大于0")
	ErrEmptyOllamaHost      = errors.New("Ollama服务器地址不能为空")
	ErrEmptyOllamaModel     = errors.New("Ollama模型名称不能为空")
	ErrEmptyWhisperURL      = errors.New("whisper服务器地址不能为空")
	ErrEmptyPcapFile        = errors.New("pcap回放文件路径不能为空")
	ErrInvalidPhraseTimeout = errors.New("断句静默超时必须大于0")
)
