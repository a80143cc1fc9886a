package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/chazu/morpheus/pkg/kernel"
	"github.com/chazu/morpheus/pkg/kernel/sdfx"
	"github.com/chazu/morpheus/pkg/logging"
	"github.com/chazu/morpheus/pkg/scene"
	"github.com/chazu/morpheus/pkg/tessellate"
	"github.com/spf13/cobra"
)

// palette assigns distinct preview colors to meshes in scene order. Objects
// with a material use its albedo instead.
var palette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// meshData is the JSON form of one preview mesh.
type meshData struct {
	*kernel.Mesh
	Color string `json:"color"`
}

func newMeshCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "mesh FILE",
		Short: "Tessellate every object and write the meshes as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := newLoader(opts.cfg).load(args[0])
			if err != nil {
				return err
			}
			meshes, err := tessellate.Tessellate(sc, sdfx.New(opts.cfg.Mesh.Cells))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			logging.Logger().Info("meshes written", "count", len(meshes), "output", output)
			return writeMeshes(out, sc, meshes)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file")
	return cmd
}

func writeMeshes(out io.Writer, sc *scene.Scene, meshes []*kernel.Mesh) error {
	data := make([]meshData, len(meshes))
	for i, m := range meshes {
		data[i] = meshData{Mesh: m, Color: palette[i%len(palette)]}
		if e := sc.Lookup(m.Name); e != nil && !e.Material.IsDefault() {
			data[i].Color = hexColor(e.Material.Albedo)
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func hexColor(c [3]float32) string {
	const digits = "0123456789ABCDEF"
	b := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, v := range c {
		n := int(min(max(v, 0), 1)*255 + 0.5)
		b[1+2*i] = digits[n>>4]
		b[2+2*i] = digits[n&15]
	}
	return string(b)
}
