package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"matching-engine-go/config"
	"matching-engine-go/internal/container"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	checkOnly := flag.Bool("check", false, "只校验配置后退出")
	flag.Parse()

	if *checkOnly {
		if _, err := config.LoadWithEnvOverrides(*cfgPath); err != nil {
			fmt.Fprintf(os.Stderr, "配置无效: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("配置有效")
		return
	}

	c, err := container.New(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := c.Build(); err != nil {
		log.Fatalf("初始化失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 组件由 c.Stop 按逆序停止，不跟随信号 ctx，保证分发队列先排空
	if err := c.Start(context.Background()); err != nil {
		log.Fatalf("启动失败: %v", err)
	}
	// 非 systemd 环境下 SdNotify 返回 (false, nil)
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Printf("sd_notify ready: %v", err)
	}

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err := c.Stop(); err != nil {
		log.Printf("停止时出错: %v", err)
		os.Exit(1)
	}
}
