package transport

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// SerialDialer 通过 FTDI USB 串口直连控制板：8 数据位、无校验、1 停止位
type SerialDialer struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration // 0 表示阻塞读取

	// open 仅用于测试替换
	open func(name string, mode *serial.Mode) (serial.Port, error)
}

func (d *SerialDialer) Name() string   { return "serial" }
func (d *SerialDialer) Target() string { return d.Port }

// Dial 打开串口；上一次会话残留在驱动缓冲区中的字节会被丢弃
func (d *SerialDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	open := d.open
	if open == nil {
		open = serial.Open
	}

	baud := d.BaudRate
	if baud <= 0 {
		baud = 57600
	}
	port, err := open(d.Port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", d.Port, err)
	}

	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("reset serial %s: %w", d.Port, err)
	}
	timeout := serial.NoTimeout
	if d.ReadTimeout > 0 {
		timeout = d.ReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set serial read timeout: %w", err)
	}
	return &serialConn{Port: port}, nil
}

// serialConn 将超时返回的 (0, nil) 转换为 ErrTimeout，避免上层 io.ReadFull 空转
type serialConn struct {
	serial.Port
}

func (c *serialConn) Read(p []byte) (int, error) {
	n, err := c.Port.Read(p)
	if n == 0 && err == nil && len(p) > 0 {
		return 0, ErrTimeout
	}
	return n, err
}
