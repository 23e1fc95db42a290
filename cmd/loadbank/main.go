// Loadbank 是三相负载箱控制板的命令行工具。
//
// 通过 TCP 串口服务器或 FTDI USB 串口向控制板发送开关、相位与过零抑制命令，
// 设置类命令完成后自动回查并输出设备的实际状态。
//
// Usage:
//
//	loadbank [command] [flags]
//
// See 'loadbank --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	c := newCLI()
	err := c.rootCmd().ExecuteContext(ctx)
	c.shutdown()
	stop()
	if err != nil {
		// 已按 --format 输出过的错误不再重复打印
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
