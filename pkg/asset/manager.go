package asset

import (
	"errors"

	"github.com/chazu/morpheus/pkg/csg"
	"github.com/chazu/morpheus/pkg/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Manager owns one Map per asset kind.
type Manager struct {
	CSG       *Map[*CSGAsset]
	Materials *Map[*MaterialAsset]

	layouts Layouts
	next    Key
}

// NewManager returns a manager whose assets bind against layouts. The
// default material is staged under DefaultMaterialKey.
func NewManager(layouts Layouts) *Manager {
	m := &Manager{
		CSG:       NewMap[*CSGAsset]("csg"),
		Materials: NewMap[*MaterialAsset]("material"),
		layouts:   layouts,
		next:      DefaultMaterialKey + 1,
	}
	m.Materials.Load(DefaultMaterialKey, DefaultMaterial())
	return m
}

// NextKey returns a key not handed out before. Keys are shared across kinds.
func (m *Manager) NextKey() Key {
	k := m.next
	m.next++
	return k
}

// AddCSG stages obj under a fresh key.
func (m *Manager) AddCSG(label string, obj csg.Object) Key {
	key := m.NextKey()
	m.CSG.Load(key, NewCSG(label, obj))
	return key
}

// ReplaceCSG stages obj under an existing key. The current resident stays
// visible until the next Reload.
func (m *Manager) ReplaceCSG(key Key, label string, obj csg.Object) {
	if old, ok := m.CSG.Load(key, NewCSG(label, obj)); ok {
		old.Release()
	}
}

// AddMaterial stages a material under a fresh key.
func (m *Manager) AddMaterial(label string, albedo mgl32.Vec3, roughness float32) Key {
	key := m.NextKey()
	m.Materials.Load(key, NewMaterial(label, albedo, roughness))
	return key
}

// Dirty reports whether any kind has staged values.
func (m *Manager) Dirty() bool {
	return m.Materials.Dirty() || m.CSG.Dirty()
}

// Reload commits staged values of every kind, materials first.
func (m *Manager) Reload(dev gpu.Device) error {
	ctx := Context{Device: dev, Layouts: m.layouts}
	return errors.Join(
		m.Materials.Reload(ctx),
		m.CSG.Reload(ctx),
	)
}

// Close releases every resident asset.
func (m *Manager) Close() {
	m.CSG.Release()
	m.Materials.Release()
}
