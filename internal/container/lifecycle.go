package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"matching-engine-go/config"
	"matching-engine-go/infrastructure/logger"
	"matching-engine-go/internal/engine"
)

// Lifecycle 生命周期接口
type Lifecycle interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Health() error
}

// LifecycleManager 生命周期管理器
type LifecycleManager struct {
	components []Lifecycle
	mu         sync.RWMutex
}

// NewLifecycleManager 创建新的生命周期管理器
func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{}
}

// Register 注册组件
func (m *LifecycleManager) Register(component Lifecycle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component)
}

// StartAll 按顺序启动所有组件，失败时逆序回滚已启动的组件。
func (m *LifecycleManager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, component := range m.components {
		if err := component.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = m.components[j].Stop()
			}
			return fmt.Errorf("start %s: %w", component.Name(), err)
		}
	}
	return nil
}

// StopAll 逆序停止所有组件，返回合并的错误。
func (m *LifecycleManager) StopAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for i := len(m.components) - 1; i >= 0; i-- {
		if err := m.components[i].Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", m.components[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

// CheckHealth 检查所有组件健康状态
func (m *LifecycleManager) CheckHealth() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, component := range m.components {
		if err := component.Health(); err != nil {
			return fmt.Errorf("%s unhealthy: %w", component.Name(), err)
		}
	}
	return nil
}

// engineComponent 事件分发协程的启停。
type engineComponent struct {
	eng *engine.Engine
}

func (c *engineComponent) Name() string { return "engine" }

func (c *engineComponent) Start(ctx context.Context) error { return c.eng.Start(ctx) }

// Stop 可能与 ctx 取消触发的停止并发，已停止时不报错。
func (c *engineComponent) Stop() error {
	if c.eng.State() != engine.StateRunning {
		return nil
	}
	if err := c.eng.Stop(); err != nil && c.eng.State() != engine.StateStopped {
		return err
	}
	return nil
}

func (c *engineComponent) Health() error {
	if s := c.eng.State(); s != engine.StateRunning {
		return fmt.Errorf("engine %s", s)
	}
	return nil
}

// httpServerComponent HTTP服务器组件
type httpServerComponent struct {
	name    string
	handler http.Handler
	addr    string
	logger  *logger.Logger

	mu      sync.Mutex
	server  *http.Server
	started bool
}

func (h *httpServerComponent) Name() string { return h.name }

func (h *httpServerComponent) Start(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return nil
	}
	srv := &http.Server{Addr: h.addr, Handler: h.handler, ReadHeaderTimeout: 5 * time.Second}
	h.server = srv

	go func() {
		h.logger.Info("http server listening", zap.String("component", h.name), zap.String("addr", h.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.LogError(err, zap.String("component", h.name), zap.String("action", "listen"))
		}
	}()
	h.started = true
	return nil
}

func (h *httpServerComponent) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started || h.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", h.name, err)
	}
	h.logger.Info("http server stopped", zap.String("component", h.name))
	h.started = false
	return nil
}

func (h *httpServerComponent) Health() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return fmt.Errorf("%s not started", h.name)
	}
	return nil
}

// watcherComponent 配置热更新，只应用准入参数。
type watcherComponent struct {
	watcher config.Watcher
	apply   func(config.AppConfig)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (w *watcherComponent) Name() string { return "config_watcher" }

func (w *watcherComponent) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel, w.done = cancel, make(chan struct{})
	go func() {
		defer close(w.done)
		if err := w.watcher.Start(ctx, w.apply); err != nil && !errors.Is(err, context.Canceled) {
			w.watcher.Logger.Error("config watcher exited", zap.Error(err))
		}
	}()
	return nil
}

func (w *watcherComponent) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	<-w.done
	w.cancel = nil
	return nil
}

func (w *watcherComponent) Health() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel == nil {
		return errors.New("not running")
	}
	select {
	case <-w.done:
		return errors.New("watcher exited")
	default:
		return nil
	}
}
