package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

// TCPDialer 通过串口服务器的 TCP 端口访问控制板
type TCPDialer struct {
	Addr         string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration // 0 表示不设读超时
	WriteTimeout time.Duration
}

func (d *TCPDialer) Name() string   { return "tcp" }
func (d *TCPDialer) Target() string { return d.Addr }

// Dial 建立连接；每次读写前按超时刷新 deadline
func (d *TCPDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	nd := net.Dialer{Timeout: orDefault(d.DialTimeout, 5*time.Second)}
	c, err := nd.DialContext(ctx, "tcp", d.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.Addr, err)
	}
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &deadlineConn{Conn: c, readTimeout: d.ReadTimeout, writeTimeout: d.WriteTimeout}, nil
}

// deadlineConn 为每次 Read/Write 设置独立的超时
type deadlineConn struct {
	net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.readTimeout > 0 {
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	n, err := c.Conn.Read(p)
	return n, wrapTimeout(err)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if c.writeTimeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	n, err := c.Conn.Write(p)
	return n, wrapTimeout(err)
}

func wrapTimeout(err error) error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
