package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/loadbank/internal/preset"
	"github.com/taoyao-code/loadbank/internal/protocol/loadbank"
	"github.com/taoyao-code/loadbank/internal/render"
)

// Device 负载箱控制接口，由 device.Controller 实现
type Device interface {
	Do(ctx context.Context, req loadbank.Request) (loadbank.Response, error)
	Sequence(ctx context.Context, reqs []loadbank.Request) ([]loadbank.Response, error)
}

// Handler 负载箱控制API处理器
type Handler struct {
	dev     Device
	presets *preset.Set
	logger  *zap.Logger
}

// NewHandler 创建处理器
func NewHandler(dev Device, presets *preset.Set, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{dev: dev, presets: presets, logger: logger}
}

// PresetResult 预设执行结果
type PresetResult struct {
	Status string          `json:"status"`
	Msg    string          `json:"msg,omitempty"`
	Preset string          `json:"preset"`
	Steps  []render.Result `json:"steps"`
}

// SwitchStatus 查询开关状态
// @Summary 查询开关状态
// @Description 发送 SW? 并返回 18 位开关状态字符串，第一个字符对应第 1 个开关
// @Tags 开关
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} render.Result "成功"
// @Failure 500 {object} render.Result "设备通信失败"
// @Failure 503 {object} render.Result "设备忙或熔断"
// @Router /api/v1/switches/status [get]
func (h *Handler) SwitchStatus(c *gin.Context) {
	h.exec(c, loadbank.Request{Op: loadbank.OpSwitchQuery})
}

// SetSwitches 设置开关状态
// @Summary 设置开关状态
// @Description 下发 SW 命令后自动回查，返回设备实际状态
// @Tags 开关
// @Produce json
// @Security ApiKeyAuth
// @Param values query string true "18 位 0/1 字符串"
// @Success 200 {object} render.Result "成功"
// @Failure 400 {object} render.Result "参数错误"
// @Failure 408 {object} render.Result "过零检测超时"
// @Failure 503 {object} render.Result "设备忙或熔断"
// @Router /api/v1/switches [post]
func (h *Handler) SetSwitches(c *gin.Context) {
	h.exec(c, loadbank.Request{Op: loadbank.OpSwitchSet, Arg: c.Query("values")})
}

// PhaseStatus 查询相位分配
// @Summary 查询相位分配
// @Description 发送 PHASE? 并返回相位字符串与三相掩码
// @Tags 相位
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} render.Result "成功"
// @Failure 500 {object} render.Result "设备通信失败"
// @Router /api/v1/phases/status [get]
func (h *Handler) PhaseStatus(c *gin.Context) {
	h.exec(c, loadbank.Request{Op: loadbank.OpPhaseQuery})
}

// SetPhases 设置相位分配
// @Summary 设置相位分配
// @Description 下发 PHASE 命令后自动回查
// @Tags 相位
// @Produce json
// @Security ApiKeyAuth
// @Param values query string true "18 位 1/2/3 字符串"
// @Success 200 {object} render.Result "成功"
// @Failure 400 {object} render.Result "参数错误"
// @Router /api/v1/phases [post]
func (h *Handler) SetPhases(c *gin.Context) {
	h.exec(c, loadbank.Request{Op: loadbank.OpPhaseSet, Arg: c.Query("values")})
}

// ZCSStatus 查询过零抑制状态
// @Summary 查询过零抑制状态
// @Tags 过零抑制
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} render.Result "zcs 为 1 表示开启"
// @Router /api/v1/zcs/status [get]
func (h *Handler) ZCSStatus(c *gin.Context) {
	h.exec(c, loadbank.Request{Op: loadbank.OpZCSQuery})
}

// ZCSOn 开启过零抑制
// @Summary 开启过零抑制
// @Tags 过零抑制
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} render.Result "成功"
// @Router /api/v1/zcs/on [post]
func (h *Handler) ZCSOn(c *gin.Context) {
	h.exec(c, loadbank.Request{Op: loadbank.OpZCSSet, Arg: "ON"})
}

// ZCSOff 关闭过零抑制
// @Summary 关闭过零抑制
// @Tags 过零抑制
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} render.Result "成功"
// @Router /api/v1/zcs/off [post]
func (h *Handler) ZCSOff(c *gin.Context) {
	h.exec(c, loadbank.Request{Op: loadbank.OpZCSSet, Arg: "OFF"})
}

// ListPresets 列出预设
// @Summary 列出预设负载方案
// @Tags 预设
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/presets [get]
func (h *Handler) ListPresets(c *gin.Context) {
	list := h.presets.List()
	if list == nil {
		list = []preset.Preset{}
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "presets": list})
}

// ApplyPreset 执行预设
// @Summary 执行预设负载方案
// @Description 在一次设备占用内依次下发 相位、ZCS、开关，遇错即停
// @Tags 预设
// @Produce json
// @Security ApiKeyAuth
// @Param name path string true "预设名称"
// @Success 200 {object} PresetResult "成功"
// @Failure 404 {object} render.Result "预设不存在"
// @Router /api/v1/presets/{name}/apply [post]
func (h *Handler) ApplyPreset(c *gin.Context) {
	name := c.Param("name")
	p, err := h.presets.Get(name)
	if err != nil {
		c.JSON(http.StatusNotFound, render.Result{Status: http.StatusText(http.StatusNotFound), Msg: err.Error()})
		return
	}

	reqs := p.Requests()
	resps, err := h.dev.Sequence(c.Request.Context(), reqs)
	out := PresetResult{Status: "OK", Preset: name, Steps: make([]render.Result, 0, len(reqs))}
	for _, resp := range resps {
		out.Steps = append(out.Steps, render.FromResponse(resp))
	}
	if err != nil {
		failed := loadbank.Request{}
		if len(resps) < len(reqs) {
			failed = reqs[len(resps)]
		}
		r := render.FromError(failed, err)
		out.Status, out.Msg = r.Status, r.Msg
		out.Steps = append(out.Steps, r)
		h.logger.Warn("preset apply failed",
			zap.String("preset", name),
			zap.Int("completed", len(resps)),
			zap.Error(err))
		c.JSON(r.Code, out)
		return
	}
	h.logger.Info("preset applied", zap.String("preset", name), zap.Int("steps", len(resps)))
	c.JSON(http.StatusOK, out)
}

func (h *Handler) exec(c *gin.Context, req loadbank.Request) {
	resp, err := h.dev.Do(c.Request.Context(), req)
	if err != nil {
		r := render.FromError(req, err)
		if errors.Is(err, context.Canceled) {
			h.logger.Info("request canceled by client", zap.String("request", req.String()))
		}
		c.JSON(r.Code, r)
		return
	}
	c.JSON(http.StatusOK, render.FromResponse(resp))
}
