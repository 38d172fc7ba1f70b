package calculator

import (
	"sync"

	"spider/model"
)

// CalcHub 计算过程向推送端发送温度剖面
// 推送不阻塞计算: 缓冲区满时丢弃该帧
type CalcHub struct {
	frames chan model.Frame

	mu      sync.Mutex
	closed  bool
	dropped int
}

func NewCalcHub(buffer int) *CalcHub {
	if buffer < 1 {
		buffer = 1
	}
	return &CalcHub{frames: make(chan model.Frame, buffer)}
}

func (ch *CalcHub) PushFrame(frame model.Frame) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return
	}
	select {
	case ch.frames <- frame:
	default:
		ch.dropped++
	}
}

// Frames 计算结束后关闭
func (ch *CalcHub) Frames() <-chan model.Frame {
	return ch.frames
}

func (ch *CalcHub) Close() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !ch.closed {
		ch.closed = true
		close(ch.frames)
	}
}

// Dropped 因缓冲区满而丢弃的帧数
func (ch *CalcHub) Dropped() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.dropped
}
