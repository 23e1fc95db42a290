package loadbank

import (
	"io"
)

// 帧格式：len(1) + payload(len)
// 无魔数、无校验、无超时；超时由传输层负责

// EncodeFrame 为 payload 加上单字节长度前缀
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, &CodecError{Kind: PayloadTooLong, Len: len(payload)}
	}
	frame := make([]byte, 1+len(payload))
	frame[0] = byte(len(payload))
	copy(frame[1:], payload)
	return frame, nil
}

// ReadFrame 阻塞读取一个完整帧并返回 payload
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [1]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	payload := make([]byte, int(hdr[0]))
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// WriteFrame 编码并一次性写出整帧
func WriteFrame(w io.Writer, payload []byte) error {
	frame, err := EncodeFrame(payload)
	if err != nil {
		return err
	}
	n, err := w.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return io.ErrShortWrite
	}
	return nil
}
