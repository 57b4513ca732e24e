package controller

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Laisky/zap"

	"github.com/songquanpeng/contract-tester/common/logger"
)

// Event types streamed to run subscribers.
const (
	EventCase     = "case"
	EventFinished = "finished"
)

// RunEvent is one websocket message.
type RunEvent struct {
	Type      string `json:"type"`
	RunId     string `json:"run_id"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

const subscriberBuffer = 256

// eventHub fans run events out to websocket subscribers. Slow subscribers
// lose events rather than slow the run down.
type eventHub struct {
	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[string]map[chan []byte]struct{})}
}

// subscribe returns a channel of encoded events for runId and a func that detaches it.
func (h *eventHub) subscribe(runId string) (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	if h.subs[runId] == nil {
		h.subs[runId] = make(map[chan []byte]struct{})
	}
	h.subs[runId][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[runId][ch]; ok {
			delete(h.subs[runId], ch)
			close(ch)
			if len(h.subs[runId]) == 0 {
				delete(h.subs, runId)
			}
		}
	}
}

func (h *eventHub) publish(runId, eventType string, data any) {
	msg, err := json.Marshal(RunEvent{
		Type:      eventType,
		RunId:     runId,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		logger.Logger.Error("failed to marshal run event", zap.String("run_id", runId), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[runId] {
		select {
		case ch <- msg:
		default:
			logger.Logger.Warn("run event dropped for slow subscriber", zap.String("run_id", runId), zap.String("type", eventType))
		}
	}
}

// closeRun detaches and closes every subscriber of runId.
func (h *eventHub) closeRun(runId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[runId] {
		close(ch)
	}
	delete(h.subs, runId)
}

func (h *eventHub) subscribers(runId string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[runId])
}
