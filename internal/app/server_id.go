package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// GenerateInstanceID 生成服务实例ID，写入日志便于区分共用一块控制板的多个实例
// 优先使用环境变量 LOADBANK_INSTANCE_ID
func GenerateInstanceID() string {
	if id := os.Getenv("LOADBANK_INSTANCE_ID"); id != "" {
		return id
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("loadbank-%s-%s", hostname, uuid.New().String()[:8])
}
