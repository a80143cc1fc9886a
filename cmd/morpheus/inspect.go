package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chazu/morpheus/pkg/csg"
	"github.com/chazu/morpheus/pkg/gpunode"
	"github.com/chazu/morpheus/pkg/scene"
	"github.com/spf13/cobra"
)

func newInspectCmd(opts *options) *cobra.Command {
	var dump bool
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the binarized tree and node records of every object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := newLoader(opts.cfg).load(args[0])
			if err != nil {
				return err
			}
			return inspect(cmd.OutOrStdout(), sc, dump)
		},
	}
	cmd.Flags().BoolVar(&dump, "hex", false, "also dump the encoded node buffer")
	return cmd
}

func inspect(out io.Writer, sc *scene.Scene, dump bool) error {
	for _, e := range sc.Objects {
		tree, err := csg.Binarize(e.Object)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name, err)
		}
		buf := gpunode.Encode(tree)
		records, err := gpunode.Decode(buf)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name, err)
		}

		if tree == nil {
			fmt.Fprintf(out, "object %q: empty\n", e.Name)
		} else {
			fmt.Fprintf(out, "object %q: %d nodes, height %d, stack %d\n",
				e.Name, tree.Size(), tree.Height(), tree.StackDepth())
			fmt.Fprint(out, tree)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "slot\tid\tkind\tparameters")
		for i, r := range records {
			fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", i, r.ID, r.Kind, params(r))
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if dump {
			fmt.Fprint(out, hex.Dump(buf))
		}
		fmt.Fprintln(out)
	}
	return nil
}

func params(r gpunode.Record) string {
	switch r.Kind {
	case gpunode.KindSphere:
		return fmt.Sprintf("r=%g at %v", r.Radius, r.Offset)
	case gpunode.KindCube:
		return fmt.Sprintf("size=%v at %v rot=%v", r.Size, r.Offset, r.Rotation)
	}
	return ""
}
