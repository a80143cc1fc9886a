// Package shader holds the WGSL ray marcher. The node record layout and kind
// tags are substituted from gpunode so the shader and the encoder cannot
// drift apart.
package shader

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/chazu/morpheus/pkg/gpunode"
)

//go:embed raymarch.wgsl
var raymarchTemplate string

// MaxStackDepth is the size of the evaluator's value stack. Trees needing
// more slots cannot be rendered.
const MaxStackDepth = 32

// Tracing parameters.
const (
	MaxSteps   = 128
	HitEpsilon = 0.001
)

// Entry points.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

// ProxyVertices is the vertex count of one draw: the 12 triangles of the
// bounding box, generated in the vertex stage.
const ProxyVertices = 36

// Bind group indices.
const (
	GroupFrame    = 0
	GroupMaterial = 1
	GroupCSG      = 2
	GroupInstance = 3
)

// Bindings inside GroupFrame.
const (
	BindingCamera = 0
	BindingScreen = 1
	BindingSun    = 2
)

// Uniform block sizes in bytes.
const (
	CameraSize   = 144
	ScreenSize   = 8
	SunSize      = 32
	MaterialSize = 16
	InstanceSize = 160
)

type params struct {
	Words            int
	WordPosition     int
	WordRadius       int
	WordRotation     int
	WordSize         int
	WordKind         int
	KindEmpty        uint32
	KindSphere       uint32
	KindCube         uint32
	KindUnion        uint32
	KindIntersection uint32
	KindDifference   uint32
	MaxStackDepth    int
	MaxSteps         int
	HitEpsilon       string
}

var source = sync.OnceValues(func() (string, error) {
	tmpl, err := template.New("raymarch").Option("missingkey=error").Parse(raymarchTemplate)
	if err != nil {
		return "", fmt.Errorf("shader: parse template: %w", err)
	}
	p := params{
		Words:            gpunode.Words,
		WordPosition:     gpunode.OffsetPosition / 4,
		WordRadius:       gpunode.OffsetRadius / 4,
		WordRotation:     gpunode.OffsetRotation / 4,
		WordSize:         gpunode.OffsetSize / 4,
		WordKind:         gpunode.OffsetKind / 4,
		KindEmpty:        uint32(gpunode.KindEmpty),
		KindSphere:       uint32(gpunode.KindSphere),
		KindCube:         uint32(gpunode.KindCube),
		KindUnion:        uint32(gpunode.KindUnion),
		KindIntersection: uint32(gpunode.KindIntersection),
		KindDifference:   uint32(gpunode.KindDifference),
		MaxStackDepth:    MaxStackDepth,
		MaxSteps:         MaxSteps,
		HitEpsilon:       fmt.Sprintf("%g", HitEpsilon),
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, p); err != nil {
		return "", fmt.Errorf("shader: render template: %w", err)
	}
	return b.String(), nil
})

// Source returns the WGSL source of the ray marcher.
func Source() (string, error) {
	return source()
}
