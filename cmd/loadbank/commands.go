package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taoyao-code/loadbank/internal/preset"
	"github.com/taoyao-code/loadbank/internal/protocol/loadbank"
	"github.com/taoyao-code/loadbank/internal/render"
)

func newSwitchCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sw",
		Aliases: []string{"switches"},
		Short:   "Query or set the 18 load switches",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the switch state reported by the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, loadbank.Request{Op: loadbank.OpSwitchQuery})
		},
	}, &cobra.Command{
		Use:   "set <bits>",
		Short: "Set all switches from an 18 character string of 0s and 1s",
		Example: `  # Close switches 1, 3 and 18
  loadbank sw set 101000000000000001`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, loadbank.Request{Op: loadbank.OpSwitchSet, Arg: args[0]})
		},
	})
	return cmd
}

func newPhaseCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "phase",
		Aliases: []string{"phases"},
		Short:   "Query or set which phase each switch is wired to",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the phase assignment reported by the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, loadbank.Request{Op: loadbank.OpPhaseQuery})
		},
	}, &cobra.Command{
		Use:   "set <phases>",
		Short: "Assign every switch to phase 1, 2 or 3",
		Example: `  # Six switches on each phase
  loadbank phase set 111111222222333333`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, loadbank.Request{Op: loadbank.OpPhaseSet, Arg: args[0]})
		},
	})
	return cmd
}

func newZCSCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zcs",
		Short: "Query or toggle zero-cross suppression",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show whether zero-cross suppression is on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, loadbank.Request{Op: loadbank.OpZCSQuery})
		},
	})
	for _, state := range []string{"ON", "OFF"} {
		state := state
		cmd.AddCommand(&cobra.Command{
			Use:   strings.ToLower(state),
			Short: "Turn zero-cross suppression " + state,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(cmd, loadbank.Request{Op: loadbank.OpZCSSet, Arg: state})
			},
		})
	}
	return cmd
}

// newExecCmd 兼容旧脚本的参数形式：ZCS? | ZCS ON|OFF | SW? | SW <bits> | PHASE? | PHASE <phases>
func newExecCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <REQUEST> [ARG]",
		Short: "Run one request given in the board's own command syntax",
		Example: `  loadbank exec SW?
  loadbank exec ZCS ON
  loadbank exec PHASE 111111222222333333`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadbank.ParseRequest(args)
			if err != nil {
				return c.write(cmd.OutOrStdout(), render.FromError(req, err))
			}
			return c.run(cmd, req)
		},
	}
}

func newPresetCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "List or apply named load profiles",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := c.presets()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPHASES\tZCS\tSWITCHES\tDESCRIPTION")
			for _, p := range set.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, dash(p.Phases), dash(p.ZCS), dash(p.Switches), p.Description)
			}
			return w.Flush()
		},
	}, &cobra.Command{
		Use:   "apply <name>",
		Short: "Apply a preset: phases, then ZCS, then switches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := c.presets()
			if err != nil {
				return err
			}
			p, err := set.Get(args[0])
			if err != nil {
				return err
			}
			ctrl, err := c.controller(cmd)
			if err != nil {
				return err
			}
			reqs := p.Requests()
			resps, err := ctrl.Sequence(cmd.Context(), reqs)
			for _, resp := range resps {
				if werr := c.write(cmd.OutOrStdout(), render.FromResponse(resp)); werr != nil {
					return werr
				}
			}
			if err != nil {
				failed := loadbank.Request{}
				if len(resps) < len(reqs) {
					failed = reqs[len(resps)]
				}
				return c.write(cmd.OutOrStdout(), render.FromError(failed, err))
			}
			return nil
		},
	})
	return cmd
}

func (c *cli) presets() (*preset.Set, error) {
	if err := c.load(); err != nil {
		return nil, err
	}
	return preset.LoadOrDefault(c.cfg.Presets.Path)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
