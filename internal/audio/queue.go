// Package audio 提供音频采集源和生产者/消费者共享队列
package audio

import "sync"

// Queue 线程安全的音频块队列。
// 采集源只持有生产端，断句器只持有消费端；队列不限长，
// 生产者永不阻塞，消费者一次性原子取空。
type Queue struct {
	mu     sync.Mutex
	chunks [][]byte
}

// NewQueue 创建新的音频队列
func NewQueue() *Queue {
	return &Queue{}
}

// Push 入队一个音频块，所有权转移给队列
func (q *Queue) Push(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	q.mu.Lock()
	q.chunks = append(q.chunks, chunk)
	q.mu.Unlock()
}

// Drain 原子取出并拼接队列中的全部音频，队列清空。
// 队列为空时返回nil。
func (q *Queue) Drain() []byte {
	q.mu.Lock()
	chunks := q.chunks
	q.chunks = nil
	q.mu.Unlock()

	if len(chunks) == 0 {
		return nil
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	data := make([]byte, 0, total)
	for _, c := range chunks {
		data = append(data, c...)
	}
	return data
}

// Len 返回当前排队的音频块数量
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}
