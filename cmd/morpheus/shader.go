package main

import (
	"fmt"

	"github.com/chazu/morpheus/pkg/shader"
	"github.com/gogpu/naga"
	"github.com/spf13/cobra"
)

func newShaderCmd(_ *options) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "shader",
		Short: "Print the WGSL ray marcher, or compile it with --check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := shader.Source()
			if err != nil {
				return err
			}
			if !check {
				_, err := fmt.Fprint(cmd.OutOrStdout(), src)
				return err
			}
			spirv, err := naga.Compile(src)
			if err != nil {
				return fmt.Errorf("shader: compile: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d bytes of SPIR-V\n", len(spirv))
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "compile the shader to SPIR-V and report errors")
	return cmd
}
