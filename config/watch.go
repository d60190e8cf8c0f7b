package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher 监听配置文件变化，重新加载并校验后回调。监听所在目录，
// 以覆盖编辑器先写临时文件再 rename 的保存方式。
type Watcher struct {
	Path     string
	Debounce time.Duration // 连续写入合并为一次加载
	Logger   *zap.Logger
}

// Start 阻塞直到 ctx 取消。加载或校验失败时保留旧配置，只记录日志。
func (w Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	if w.Debounce <= 0 {
		w.Debounce = 200 * time.Millisecond
	}
	log := w.Logger
	if log == nil {
		log = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	target := filepath.Clean(w.Path)
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", target, err)
	}

	timer := time.NewTimer(w.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.Debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", zap.Error(err))
		case <-timer.C:
			cfg, err := LoadWithEnvOverrides(target)
			if err != nil {
				log.Error("config reload rejected", zap.String("path", target), zap.Error(err))
				continue
			}
			log.Info("config reloaded", zap.String("path", target), zap.String("env", cfg.Env))
			if onUpdate != nil {
				onUpdate(cfg)
			}
		}
	}
}
