package preset

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/loadbank/internal/protocol/loadbank"
)

// ErrNotFound 预设不存在
var ErrNotFound = errors.New("preset not found")

// Preset 一组命名的负载步骤；字段为空表示该项不下发
type Preset struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	Phases      string `yaml:"phases" json:"phases,omitempty"`
	ZCS         string `yaml:"zcs" json:"zcs,omitempty"`
	Switches    string `yaml:"switches" json:"switches,omitempty"`
}

// Requests 按 相位 -> ZCS -> 开关 的顺序生成请求，先定相再合闸
func (p Preset) Requests() []loadbank.Request {
	var reqs []loadbank.Request
	if p.Phases != "" {
		reqs = append(reqs, loadbank.Request{Op: loadbank.OpPhaseSet, Arg: p.Phases})
	}
	if p.ZCS != "" {
		reqs = append(reqs, loadbank.Request{Op: loadbank.OpZCSSet, Arg: p.ZCS})
	}
	if p.Switches != "" {
		reqs = append(reqs, loadbank.Request{Op: loadbank.OpSwitchSet, Arg: p.Switches})
	}
	return reqs
}

// Validate 检查名称与每一步参数
func (p Preset) Validate() error {
	if p.Name == "" {
		return errors.New("preset name is empty")
	}
	reqs := p.Requests()
	if len(reqs) == 0 {
		return fmt.Errorf("preset %q: no steps", p.Name)
	}
	for _, r := range reqs {
		if _, err := r.Build(); err != nil {
			return fmt.Errorf("preset %q: %w", p.Name, err)
		}
	}
	return nil
}

// Set 预设集合
type Set struct {
	Presets []Preset `yaml:"presets"`

	byName map[string]Preset
}

// Default 内置预设：全部断开
func Default() *Set {
	s := &Set{Presets: []Preset{
		{Name: "all-off", Description: "open every load switch", Switches: "000000000000000000"},
		{
			Name:        "balanced-full",
			Description: "six switches per phase, zero-cross suppression on, all closed",
			Phases:      "111111222222333333",
			ZCS:         "ON",
			Switches:    "111111111111111111",
		},
	}}
	_ = s.index()
	return s
}

// Load 从 YAML 文件加载预设
func Load(path string) (*Set, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	var s Set
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("unmarshal presets: %w", err)
	}
	if err := s.index(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadOrDefault path 为空时使用内置预设
func LoadOrDefault(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func (s *Set) index() error {
	s.byName = make(map[string]Preset, len(s.Presets))
	for _, p := range s.Presets {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := s.byName[p.Name]; dup {
			return fmt.Errorf("duplicate preset %q", p.Name)
		}
		s.byName[p.Name] = p
	}
	return nil
}

// Get 按名称查找
func (s *Set) Get(name string) (Preset, error) {
	if s == nil {
		return Preset{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	p, ok := s.byName[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// List 按名称排序返回
func (s *Set) List() []Preset {
	if s == nil {
		return nil
	}
	out := make([]Preset, len(s.Presets))
	copy(out, s.Presets)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
