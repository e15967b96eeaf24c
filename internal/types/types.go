// Package types 定义基本类型
package types

// Speaker 会话发言方
type Speaker string

// 定义发言方常量
const (
	SpeakerStudent Speaker = "student"
	SpeakerBot     Speaker = "bot"
)

// SegmentKind 断句结果类型
type SegmentKind int

// 定义断句结果类型常量
const (
	SegmentNone     SegmentKind = iota // 无活动
	SegmentLive                        // 实时转写更新
	SegmentPausing                     // 静默倒计时中
	SegmentComplete                    // 短语完成
)

// Status 会话状态提示
type Status string

// 定义会话状态常量
const (
	StatusListening  Status = "listening"
	StatusPausing    Status = "pausing"
	StatusAnalyzing  Status = "analyzing"
	StatusResponding Status = "responding"
)
