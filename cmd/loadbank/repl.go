package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/taoyao-code/loadbank/internal/protocol/loadbank"
	"github.com/taoyao-code/loadbank/internal/render"
)

const (
	menuPrompt   = "What message to send? SW, ZCS, PHASE, SW?, ZCS?, PHASE? ... EXIT to exit CLI.\n"
	zcsPrompt    = "Turn ZCS ON or OFF?\n"
	switchPrompt = "Please enter desired state of switches as a string of 1s and 0s.\n" +
		"First switch is the first character. Type up to the number of switches (%d)\n"
	phasePrompt = "Please enter phase %d definition as a string of 1s and 0s.\n" +
		"First switch is the first character. Type up to %d characters\n"
	invalidOption = "Did not enter a valid option\n"
	zcsAborted    = "Did not specify one of ON or OFF, aborting\n"
)

var replVerbs = []string{"SW", "ZCS", "PHASE", "SW?", "ZCS?", "PHASE?", "EXIT"}

// prompter 行输入，由 liner.State 实现
type prompter interface {
	Prompt(prompt string) (string, error)
}

// repl 交互式菜单：开关与相位按掩码输入，允许少于 18 个字符（其余开关视为 0）
type repl struct {
	in    prompter
	out   io.Writer
	exec  func(op loadbank.Op, payload []byte) render.Result
	write func(io.Writer, render.Result) error
}

func (r *repl) loop() error {
	for {
		fmt.Fprint(r.out, menuPrompt)
		line, err := r.prompt()
		if err != nil {
			return ignoreEOF(err)
		}
		switch verb := strings.ToUpper(strings.TrimSpace(line)); verb {
		case "":
		case "EXIT":
			return nil
		case "SW?":
			r.send(loadbank.OpSwitchQuery, nil)
		case "ZCS?":
			r.send(loadbank.OpZCSQuery, nil)
		case "PHASE?":
			r.send(loadbank.OpPhaseQuery, nil)
		case "SW":
			if err := r.switches(); err != nil {
				return ignoreEOF(err)
			}
		case "ZCS":
			if err := r.zcs(); err != nil {
				return ignoreEOF(err)
			}
		case "PHASE":
			if err := r.phases(); err != nil {
				return ignoreEOF(err)
			}
		default:
			fmt.Fprint(r.out, invalidOption)
		}
	}
}

func (r *repl) prompt() (string, error) {
	return r.in.Prompt("> ")
}

func (r *repl) switches() error {
	fmt.Fprintf(r.out, switchPrompt, loadbank.NumSwitches)
	line, err := r.prompt()
	if err != nil {
		return err
	}
	mask, err := loadbank.BinStringToMask(line, loadbank.NumSwitches)
	if err != nil {
		r.report(loadbank.OpSwitchSet, line, err)
		return nil
	}
	r.send(loadbank.OpSwitchSet, loadbank.BuildSwitchSetMask(mask))
	return nil
}

func (r *repl) zcs() error {
	fmt.Fprint(r.out, zcsPrompt)
	line, err := r.prompt()
	if err != nil {
		return err
	}
	payload, err := loadbank.BuildZCSSet(strings.ToUpper(strings.TrimSpace(line)))
	if err != nil {
		fmt.Fprint(r.out, zcsAborted)
		return nil
	}
	r.send(loadbank.OpZCSSet, payload)
	return nil
}

func (r *repl) phases() error {
	var masks loadbank.PhaseAssignment
	for i := range masks {
		fmt.Fprintf(r.out, phasePrompt, i+1, loadbank.NumSwitches)
		line, err := r.prompt()
		if err != nil {
			return err
		}
		m, err := loadbank.BinStringToMask(line, loadbank.NumSwitches)
		if err != nil {
			r.report(loadbank.OpPhaseSet, line, err)
			return nil
		}
		masks[i] = m
	}
	r.send(loadbank.OpPhaseSet, loadbank.BuildPhaseSetMasks(masks))
	return nil
}

// send payload 为空时按查询命令构造
func (r *repl) send(op loadbank.Op, payload []byte) {
	if payload == nil {
		var err error
		if payload, err = (loadbank.Request{Op: op}).Build(); err != nil {
			r.report(op, "", err)
			return
		}
	}
	_ = r.write(r.out, r.exec(op, payload))
}

func (r *repl) report(op loadbank.Op, arg string, err error) {
	_ = r.write(r.out, render.Result{
		Status: http.StatusText(http.StatusBadRequest),
		Msg:    fmt.Sprintf("%s argument %q: %v", op, arg, err),
		Code:   http.StatusBadRequest,
	})
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
		return nil
	}
	return err
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".loadbank_history")
}

func newReplCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive menu for sending commands one at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := c.controller(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			line := liner.NewLiner()
			defer line.Close()
			line.SetCtrlCAborts(true)
			line.SetCompleter(func(s string) (out []string) {
				for _, v := range replVerbs {
					if strings.HasPrefix(v, strings.ToUpper(s)) {
						out = append(out, v)
					}
				}
				return out
			})
			hist := historyPath()
			if f, err := os.Open(hist); err == nil {
				_, _ = line.ReadHistory(f)
				f.Close()
			}

			r := &repl{
				in:  &historyPrompter{State: line},
				out: cmd.OutOrStdout(),
				exec: func(op loadbank.Op, payload []byte) render.Result {
					resp, err := ctrl.DoPayload(ctx, op, payload)
					if err != nil {
						return render.FromError(loadbank.Request{Op: op}, err)
					}
					return render.FromResponse(resp)
				},
				write: c.write,
			}
			err = r.loop()

			if hist != "" {
				if f, ferr := os.Create(hist); ferr == nil {
					_, _ = line.WriteHistory(f)
					f.Close()
				}
			}
			return err
		},
	}
}

// historyPrompter 记录非空输入到历史
type historyPrompter struct {
	*liner.State
}

func (p *historyPrompter) Prompt(prompt string) (string, error) {
	s, err := p.State.Prompt(prompt)
	if err == nil && strings.TrimSpace(s) != "" {
		p.AppendHistory(s)
	}
	return s, err
}
