package audio

import (
	"bytes"
	"sync"
	"testing"
)

func TestQueue_PushDrain(t *testing.T) {
	q := NewQueue()

	q.Push([]byte{1, 2})
	q.Push([]byte{3})
	q.Push([]byte{4, 5, 6})

	if q.Len() != 3 {
		t.Errorf("期望队列长度3，实际为%d", q.Len())
	}

	data := q.Drain()
	if !bytes.Equal(data, []byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("取出的音频与入队顺序不一致: %v", data)
	}

	// 取空后队列清空
	if q.Len() != 0 {
		t.Errorf("Drain后队列应为空，实际长度%d", q.Len())
	}
	if q.Drain() != nil {
		t.Error("空队列Drain应返回nil")
	}
}

func TestQueue_PushEmptyChunk(t *testing.T) {
	q := NewQueue()
	q.Push(nil)
	q.Push([]byte{})

	if q.Len() != 0 {
		t.Errorf("空音频块不应入队，实际长度%d", q.Len())
	}
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := NewQueue()

	var wg sync.WaitGroup
	const producers = 8
	const perProducer = 100

	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				q.Push([]byte{0, 1})
			}
		}()
	}
	wg.Wait()

	data := q.Drain()
	want := producers * perProducer * 2
	if len(data) != want {
		t.Errorf("期望取出%d字节，实际%d字节", want, len(data))
	}
}
