package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// rtpHeaderSize RTP固定头部长度
const rtpHeaderSize = 12

// PcapSource 从pcap抓包文件回放RTP音频的采集源。
// 用于在没有麦克风的环境下以录制的通话驱动整条流水线，
// 按抓包时间戳的原始节奏推送音频块。
type PcapSource struct {
	filename string

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// NewPcapSource 创建新的pcap回放采集源
func NewPcapSource(filename string) *PcapSource {
	return &PcapSource{filename: filename}
}

// Start 打开pcap文件并在后台按原始节奏回放音频
func (s *PcapSource) Start(ctx context.Context, queue *Queue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("采集源已启动")
	}

	handle, err := pcap.OpenOffline(s.filename)
	if err != nil {
		return fmt.Errorf("打开pcap文件失败: %v", err)
	}

	replayCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = false

	go s.replay(replayCtx, handle, queue)

	return nil
}

// Stop 停止回放
func (s *PcapSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}

// replay 逐包读取UDP负载，剥离RTP头后入队
func (s *PcapSource) replay(ctx context.Context, handle *pcap.Handle, queue *Queue) {
	defer handle.Close()

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())

	var lastTimestamp time.Time
	for packet := range packetSource.Packets() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || len(udp.Payload) <= rtpHeaderSize {
			continue
		}

		// 按抓包时间戳还原原始节奏
		ts := packet.Metadata().Timestamp
		if !lastTimestamp.IsZero() {
			if gap := ts.Sub(lastTimestamp); gap > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(gap):
				}
			}
		}
		lastTimestamp = ts

		payload := make([]byte, len(udp.Payload)-rtpHeaderSize)
		copy(payload, udp.Payload[rtpHeaderSize:])
		queue.Push(payload)
	}
}
