// Package config 提供配置加载和管理功能
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var globalConfig *Config

// Config 应用程序配置结构
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Whisper   WhisperConfig   `yaml:"whisper"`
	Audio     AudioConfig     `yaml:"audio"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Storage   StorageConfig   `yaml:"storage"`
	TTS       TTSConfig       `yaml:"tts"`
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Host string `yaml:"host"` // 服务器监听地址
	Port int    `yaml:"port"` // 服务器监听端口
}

// OllamaConfig Ollama配置
type OllamaConfig struct {
	Host        string  `yaml:"host"`        // Ollama服务器地址
	Model       string  `yaml:"model"`       // 模型名称
	Temperature float64 `yaml:"temperature"` // 温度参数
	TopP        float64 `yaml:"top_p"`       // Top-p采样
	MaxTokens   int     `yaml:"max_tokens"`  // 最大生成token数
}

// WhisperConfig 语音识别服务配置
type WhisperConfig struct {
	ServerURL  string `yaml:"server_url"`  // whisper服务器地址
	Model      string `yaml:"model"`       // 模型大小(tiny/base/small/medium/large)
	SampleRate int    `yaml:"sample_rate"` // 采样率
}

// AudioConfig 音频采集配置
type AudioConfig struct {
	Source        string   `yaml:"source"`         // 采集源类型: pulse 或 pcap
	Device        string   `yaml:"device"`         // 输入设备名称，空表示默认设备
	PcapFile      string   `yaml:"pcap_file"`      // pcap回放文件路径（source=pcap时使用）
	RecordWindow  Duration `yaml:"record_window"`  // 单次采集窗口时长
	PhraseTimeout Duration `yaml:"phrase_timeout"` // 默认断句静默超时
	TickInterval  Duration `yaml:"tick_interval"`  // 对话循环轮询间隔
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	ReadBufferSize  int      `yaml:"read_buffer_size"`  // 读缓冲区大小
	WriteBufferSize int      `yaml:"write_buffer_size"` // 写缓冲区大小
	PingPeriod      Duration `yaml:"ping_period"`       // 心跳间隔
	PongWait        Duration `yaml:"pong_wait"`         // 等待Pong响应的超时时间
}

// StorageConfig 会话存储配置
type StorageConfig struct {
	ConversationDir string `yaml:"conversation_dir"` // 会话JSON存储目录
	UploadDir       string `yaml:"upload_dir"`       // 上传文件临时目录
}

// TTSConfig 语音合成配置（当前默认关闭）
type TTSConfig struct {
	Enabled bool    `yaml:"enabled"` // 是否启用语音合成
	Rate    int     `yaml:"rate"`    // 语速（词/分钟）
	Volume  float64 `yaml:"volume"`  // 音量(0.0-1.0)
}

// GetConfig 获取全局配置实例
func GetConfig() *Config {
	return globalConfig
}

// Load 从文件加载配置
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}

	// 设置默认值
	applyDefaults(&config)

	// 验证配置
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %v", err)
	}

	// 设置全局配置
	globalConfig = &config

	return &config, nil
}

// applyDefaults 填充缺省配置项
func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8000
	}
	if config.Ollama.Temperature == 0 {
		config.Ollama.Temperature = 0.7
	}
	if config.Ollama.TopP == 0 {
		config.Ollama.TopP = 0.9
	}
	if config.Whisper.Model == "" {
		config.Whisper.Model = "base"
	}
	if config.Whisper.SampleRate == 0 {
		config.Whisper.SampleRate = 16000
	}
	if config.Audio.Source == "" {
		config.Audio.Source = "pulse"
	}
	if config.Audio.RecordWindow == 0 {
		config.Audio.RecordWindow = Duration(2 * time.Second)
	}
	if config.Audio.PhraseTimeout == 0 {
		config.Audio.PhraseTimeout = Duration(5 * time.Second)
	}
	if config.Audio.TickInterval == 0 {
		config.Audio.TickInterval = Duration(250 * time.Millisecond)
	}
	if config.WebSocket.ReadBufferSize == 0 {
		config.WebSocket.ReadBufferSize = 1024
	}
	if config.WebSocket.WriteBufferSize == 0 {
		config.WebSocket.WriteBufferSize = 1024
	}
	if config.WebSocket.PingPeriod == 0 {
		config.WebSocket.PingPeriod = Duration(30 * time.Second)
	}
	if config.WebSocket.PongWait == 0 {
		config.WebSocket.PongWait = Duration(60 * time.Second)
	}
	if config.Storage.ConversationDir == "" {
		config.Storage.ConversationDir = "conversations"
	}
	if config.Storage.UploadDir == "" {
		config.Storage.UploadDir = "uploads"
	}
	if config.TTS.Rate == 0 {
		config.TTS.Rate = 160
	}
	if config.TTS.Volume == 0 {
		config.TTS.Volume = 0.9
	}
}

// validateConfig 验证配置是否有效
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 {
		return ErrInvalidServerPort
	}
	if config.Ollama.Host == "" {
		return ErrEmptyOllamaHost
	}
	if config.Ollama.Model == "" {
		return ErrEmptyOllamaModel
	}
	if config.Whisper.ServerURL == "" {
		return ErrEmptyWhisperURL
	}
	if config.Audio.Source != "pulse" && config.Audio.Source != "pcap" {
		return fmt.Errorf("不支持的音频采集源: %s", config.Audio.Source)
	}
	if config.Audio.Source == "pcap" && config.Audio.PcapFile == "" {
		return ErrEmptyPcapFile
	}
	if config.Audio.PhraseTimeout <= 0 {
		return ErrInvalidPhraseTimeout
	}
	return nil
}
