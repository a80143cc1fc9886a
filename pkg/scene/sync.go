package scene

import (
	"github.com/chazu/morpheus/pkg/asset"
	"github.com/chazu/morpheus/pkg/logging"
	"github.com/chazu/morpheus/pkg/world"
)

type binding struct {
	entity world.EntityID
	csg    asset.Key
}

// Sync keeps a world and an asset manager in step with successive scenes.
// Entries are matched by name: a surviving name keeps its entity and CSG
// key, so a reloaded tree is staged over the resident one and swapped in by
// the next Reload without a frame showing nothing.
type Sync struct {
	world     *world.World
	assets    *asset.Manager
	bindings  map[string]binding
	materials map[MaterialSpec]asset.Key
}

// NewSync returns a Sync over w and assets.
func NewSync(w *world.World, assets *asset.Manager) *Sync {
	return &Sync{
		world:     w,
		assets:    assets,
		bindings:  make(map[string]binding),
		materials: make(map[MaterialSpec]asset.Key),
	}
}

// Apply stages every entry of sc. Entries missing from sc are despawned and
// their trees removed. The scene's camera and sun, when set, replace the
// world's.
func (s *Sync) Apply(sc *Scene) {
	live := make(map[string]bool, len(sc.Objects))
	var added, replaced int

	for _, e := range sc.Objects {
		live[e.Name] = true
		r := world.Renderable{Material: s.material(e.Material)}

		if b, ok := s.bindings[e.Name]; ok {
			s.assets.ReplaceCSG(b.csg, e.Name, e.Object)
			r.CSG = b.csg
			s.world.SetTransform(b.entity, e.Transform)
			s.world.SetRenderable(b.entity, r)
			replaced++
			continue
		}

		r.CSG = s.assets.AddCSG(e.Name, e.Object)
		s.bindings[e.Name] = binding{
			entity: s.world.Spawn(e.Transform, r),
			csg:    r.CSG,
		}
		added++
	}

	var removed int
	for name, b := range s.bindings {
		if live[name] {
			continue
		}
		s.world.Despawn(b.entity)
		s.assets.CSG.Remove(b.csg)
		delete(s.bindings, name)
		removed++
	}

	if sc.Camera != nil {
		s.world.Camera = sc.Camera.Camera()
	}
	if sc.Sun != nil {
		s.world.SetSun(sc.Sun.Light())
	}

	logging.Logger().Debug("scene applied", "added", added, "replaced", replaced, "removed", removed)
}

// Entity returns the entity bound to name.
func (s *Sync) Entity(name string) (world.EntityID, bool) {
	b, ok := s.bindings[name]
	return b.entity, ok
}

// CSGKey returns the asset key of name's tree.
func (s *Sync) CSGKey(name string) (asset.Key, bool) {
	b, ok := s.bindings[name]
	return b.csg, ok
}

// material returns the key for m, staging it the first time it is seen.
// Materials are never removed; scenes reuse a small palette.
func (s *Sync) material(m MaterialSpec) asset.Key {
	if m.IsDefault() {
		return asset.DefaultMaterialKey
	}
	if key, ok := s.materials[m]; ok {
		return key
	}
	key := s.assets.AddMaterial(m.Name, m.Albedo, m.Roughness)
	s.materials[m] = key
	return key
}
