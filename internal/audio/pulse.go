package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// PulseSource 基于PulseAudio的麦克风采集源，16kHz单声道16bit PCM
type PulseSource struct {
	device     string
	sampleRate int
	window     time.Duration

	mu      sync.Mutex
	client  *pulse.Client
	stream  *pulse.RecordStream
	queue   *Queue
	pending []byte
	stopped bool
}

// NewPulseSource 创建新的PulseAudio采集源。device为空表示默认输入设备
func NewPulseSource(device string, sampleRate int, window time.Duration) *PulseSource {
	return &PulseSource{
		device:     device,
		sampleRate: sampleRate,
		window:     window,
	}
}

// Start 建立录音流并在后台持续推送音频块
func (s *PulseSource) Start(ctx context.Context, queue *Queue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return fmt.Errorf("采集源已启动")
	}

	client, err := pulse.NewClient(pulse.ClientApplicationName("socratic_bot"))
	if err != nil {
		return fmt.Errorf("连接PulseAudio失败: %v", err)
	}

	source, err := s.resolveSource(client)
	if err != nil {
		client.Close()
		return err
	}

	s.client = client
	s.queue = queue
	s.stopped = false

	chunkSize := chunkBytes(s.sampleRate, s.window)
	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(func(buf []byte) (int, error) {
			return s.onPCM(buf, chunkSize)
		}), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(s.sampleRate),
		pulse.RecordMediaName("socratic_bot conversation"),
	)
	if err != nil {
		client.Close()
		s.client = nil
		return fmt.Errorf("创建录音流失败: %v", err)
	}

	s.stream = stream
	stream.Start()

	// ctx取消时自动停止采集
	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()

	return nil
}

// Stop 停止采集并释放PulseAudio资源
func (s *PulseSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
		s.stream = nil
	}
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}

	// 不足一个窗口的残余音频也推入队列
	if len(s.pending) > 0 && s.queue != nil {
		chunk := make([]byte, len(s.pending))
		copy(chunk, s.pending)
		s.queue.Push(chunk)
		s.pending = nil
	}

	return nil
}

// resolveSource 解析配置的输入设备，空表示默认设备
func (s *PulseSource) resolveSource(client *pulse.Client) (*pulse.Source, error) {
	if s.device == "" {
		source, err := client.DefaultSource()
		if err != nil {
			return nil, fmt.Errorf("获取默认输入设备失败: %v", err)
		}
		return source, nil
	}

	source, err := client.SourceByID(s.device)
	if err != nil {
		return nil, fmt.Errorf("解析输入设备%q失败: %v", s.device, err)
	}
	return source, nil
}

// onPCM 接收PulseAudio原始帧，按采集窗口切块后入队
func (s *PulseSource) onPCM(buf []byte, chunkSize int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return 0, io.EOF
	}

	s.pending = append(s.pending, buf...)
	for len(s.pending) >= chunkSize {
		chunk := make([]byte, chunkSize)
		copy(chunk, s.pending[:chunkSize])
		s.pending = s.pending[chunkSize:]
		s.queue.Push(chunk)
	}

	return len(buf), nil
}

// writerFunc 将函数适配为pulse.NewWriter所需的io.Writer
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

// ListDevices 列出可用的PulseAudio输入设备
func ListDevices() ([]Device, error) {
	client, err := pulse.NewClient(pulse.ClientApplicationName("socratic_bot"))
	if err != nil {
		return nil, fmt.Errorf("连接PulseAudio失败: %v", err)
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("获取默认输入设备失败: %v", err)
	}
	defaultID := defaultSource.ID()

	var reply pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &reply); err != nil {
		return nil, fmt.Errorf("获取设备列表失败: %v", err)
	}

	devices := make([]Device, 0, len(reply))
	for _, source := range reply {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}
