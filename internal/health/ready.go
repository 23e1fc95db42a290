package health

import "sync/atomic"

// Readiness 进程启动阶段的就绪标记，供 /readyz 使用
//
// device: 设备控制器已按配置组装完成（传输方式、锁后端、熔断器）且预设已加载。
// 这里不访问控制板本身，控制板是否在线由 DeviceChecker 按最近一次交互判断。
// http: HTTP 服务已开始接受请求，关闭时先置为 false 让负载均衡摘除实例。
type Readiness struct {
	device atomic.Bool
	http   atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetDeviceReady(v bool) { r.device.Store(v) }
func (r *Readiness) SetHTTPReady(v bool)   { r.http.Store(v) }

// Pending 尚未就绪的阶段，按启动顺序排列
func (r *Readiness) Pending() []string {
	var out []string
	if !r.device.Load() {
		out = append(out, "device")
	}
	if !r.http.Load() {
		out = append(out, "http")
	}
	return out
}

func (r *Readiness) Ready() bool { return len(r.Pending()) == 0 }
