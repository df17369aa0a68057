// Package event 提供任务日志事件流
// 任务运行时写入的日志按行切分为事件，保存历史并推送给订阅者（SSE）
package event

import (
	"bytes"
	"fmt"
	"sync"
	"time"
)

// EventType 事件类型
type EventType string

const (
	// EventLog 一行日志
	EventLog EventType = "log"
	// EventProgress 进度，Data 形如 "done/total"
	EventProgress EventType = "progress"
	// EventEnd 任务结束，Data 为最终状态
	EventEnd EventType = "end"
)

// 订阅者缓冲，消费过慢时丢弃新事件，不阻塞任务
const subscriberBuffer = 1024

// Event 日志事件
type Event struct {
	Seq       int       `json:"seq"`
	Type      EventType `json:"type"`
	Data      string    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Stream 单个任务的事件流，实现 io.Writer
type Stream struct {
	mu      sync.Mutex
	events  []Event
	subs    map[chan Event]struct{}
	partial []byte
	closed  bool
}

// NewStream 创建事件流
func NewStream() *Stream {
	return &Stream{subs: make(map[chan Event]struct{})}
}

// Write 按行切分为 log 事件，不完整的行保留到下次写入
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("event stream is closed")
	}

	s.partial = append(s.partial, p...)
	for {
		i := bytes.IndexByte(s.partial, '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimRight(s.partial[:i], "\r"))
		s.partial = s.partial[i+1:]
		s.publishLocked(EventLog, line)
	}
	return len(p), nil
}

// Publish 发布一个事件
func (s *Stream) Publish(typ EventType, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.publishLocked(typ, data)
	}
}

// Close 发布 end 事件并关闭所有订阅
func (s *Stream) Close(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if len(s.partial) > 0 {
		s.publishLocked(EventLog, string(s.partial))
		s.partial = nil
	}
	s.publishLocked(EventEnd, status)
	s.closed = true
	for ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}

// Subscribe 返回已有事件和后续事件的通道
// 流已关闭时通道直接关闭；cancel 用于提前退订
func (s *Stream) Subscribe() (history []Event, events <-chan Event, cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history = append([]Event(nil), s.events...)
	ch := make(chan Event, subscriberBuffer)
	if s.closed {
		close(ch)
		return history, ch, func() {}
	}

	s.subs[ch] = struct{}{}
	cancel = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
	return history, ch, cancel
}

// Closed 是否已结束
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Stream) publishLocked(typ EventType, data string) {
	evt := Event{Seq: len(s.events) + 1, Type: typ, Data: data, Timestamp: time.Now()}
	s.events = append(s.events, evt)
	for ch := range s.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
