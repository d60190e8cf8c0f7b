package engine

import (
	"sync"

	"go.uber.org/zap"
)

const defaultQueueSize = 4096

// dispatcher 单协程按顺序投递事件。未启动时在调用方协程内联投递。
type dispatcher struct {
	listeners []Listener
	logger    *zap.Logger

	mu      sync.RWMutex // 保护 running 与 ch 的关闭
	running bool
	ch      chan batch
	done    chan struct{}
	size    int
}

func newDispatcher(listeners []Listener, size int, logger *zap.Logger) *dispatcher {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &dispatcher{listeners: listeners, logger: logger, size: size}
}

func (d *dispatcher) start() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return false
	}
	d.ch = make(chan batch, d.size)
	d.done = make(chan struct{})
	d.running = true
	go d.loop(d.ch, d.done)
	return true
}

// stop 关闭队列并等待已入队事件投递完毕。
func (d *dispatcher) stop() bool {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return false
	}
	d.running = false
	close(d.ch)
	done := d.done
	d.mu.Unlock()
	<-done
	return true
}

func (d *dispatcher) loop(ch <-chan batch, done chan<- struct{}) {
	defer close(done)
	for b := range ch {
		d.deliver(b)
	}
}

// publish 队列满时阻塞调用方，不丢事件。
func (d *dispatcher) publish(b batch) {
	if len(b) == 0 || len(d.listeners) == 0 {
		return
	}
	d.mu.RLock()
	if d.running {
		d.ch <- b
		d.mu.RUnlock()
		return
	}
	d.mu.RUnlock()
	d.deliver(b)
}

// pending 队列中待投递的批次数。
func (d *dispatcher) pending() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		return 0
	}
	return len(d.ch)
}

func (d *dispatcher) deliver(b batch) {
	for i := range b {
		for _, l := range d.listeners {
			d.safeCall(l, &b[i])
		}
	}
}

func (d *dispatcher) safeCall(l Listener, ev *event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("listener panic",
				zap.String("event", ev.kind.String()),
				zap.String("symbol", ev.symbol),
				zap.Any("panic", r))
		}
	}()
	ev.deliver(l)
}
