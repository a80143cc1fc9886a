// Package asset caches device-resident assets behind numeric keys.
//
// Writes are staged: Load puts a value in a staging area that readers cannot
// see, and Reload, called once per frame before recording, uploads every
// staged value and makes it resident. Readers never observe an asset whose
// upload has not completed.
package asset

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/chazu/morpheus/pkg/gpu"
	"github.com/chazu/morpheus/pkg/logging"
)

// Key identifies an asset within its kind.
type Key uint64

// Layouts are the bind group layouts assets build their bind groups against.
type Layouts struct {
	CSG      gpu.BindGroupLayout
	Material gpu.BindGroupLayout
}

// Context is passed to Commit.
type Context struct {
	Device  gpu.Device
	Layouts Layouts
}

// Asset is a value that can be uploaded to the device. V is the concrete
// asset type itself.
type Asset[V any] interface {
	// Commit uploads the asset. prev is the value currently resident under the
	// same key, or the zero value. Commit may take over prev's device
	// resources; prev is released after a successful commit.
	Commit(ctx Context, prev V) error
	// Release frees device resources held by the asset.
	Release()
}

// Map is the cache for one asset kind.
type Map[V Asset[V]] struct {
	name     string
	resident map[Key]V
	staging  map[Key]V

	// failed holds staged keys whose last commit failed. They are not retried
	// until the key is loaded again.
	failed map[Key]bool
	dirty  bool
}

// NewMap returns an empty map. name is used in logs and errors.
func NewMap[V Asset[V]](name string) *Map[V] {
	return &Map[V]{
		name:     name,
		resident: make(map[Key]V),
		staging:  make(map[Key]V),
		failed:   make(map[Key]bool),
	}
}

// Load stages v under key and marks the map dirty. If a value was already
// staged under key it is replaced and returned; it was never uploaded, so the
// caller owns it. The resident value is not touched.
func (m *Map[V]) Load(key Key, v V) (replaced V, ok bool) {
	replaced, ok = m.staging[key]
	m.staging[key] = v
	delete(m.failed, key)
	m.dirty = true
	return replaced, ok
}

// Get returns the resident value for key.
func (m *Map[V]) Get(key Key) (V, bool) {
	v, ok := m.resident[key]
	return v, ok
}

// Staged returns the value waiting to be committed under key.
func (m *Map[V]) Staged(key Key) (V, bool) {
	v, ok := m.staging[key]
	return v, ok
}

// Failed reports whether the value staged under key failed its last commit.
func (m *Map[V]) Failed(key Key) bool { return m.failed[key] }

// Dirty reports whether values are waiting to be committed. Values that failed
// to commit do not count.
func (m *Map[V]) Dirty() bool { return m.dirty }

// Len returns the number of resident values.
func (m *Map[V]) Len() int { return len(m.resident) }

// Keys returns the resident keys in ascending order.
func (m *Map[V]) Keys() []Key {
	return slices.Sorted(maps.Keys(m.resident))
}

// Reload commits every staged value in ascending key order. A value that
// fails to commit stays staged but is not retried, and its error is not
// reported again, until its key is loaded again. The other values become
// resident. With nothing to commit Reload does nothing.
func (m *Map[V]) Reload(ctx Context) error {
	if !m.dirty {
		return nil
	}

	var errs []error
	for _, key := range slices.Sorted(maps.Keys(m.staging)) {
		if m.failed[key] {
			continue
		}
		v := m.staging[key]
		prev, had := m.resident[key]
		if err := v.Commit(ctx, prev); err != nil {
			m.failed[key] = true
			errs = append(errs, fmt.Errorf("%s %d: %w", m.name, key, err))
			continue
		}
		if had && any(prev) != any(v) {
			prev.Release()
		}
		m.resident[key] = v
		delete(m.staging, key)
	}

	m.dirty = false
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logging.Logger().Debug("assets committed", "kind", m.name, "resident", len(m.resident))
	return nil
}

// Remove drops key from both maps and releases the resident value.
func (m *Map[V]) Remove(key Key) {
	if v, ok := m.resident[key]; ok {
		v.Release()
		delete(m.resident, key)
	}
	delete(m.staging, key)
	delete(m.failed, key)
	m.dirty = len(m.staging) > len(m.failed)
}

// Release frees every resident value and empties the map.
func (m *Map[V]) Release() {
	for _, v := range m.resident {
		v.Release()
	}
	clear(m.resident)
	clear(m.staging)
	clear(m.failed)
	m.dirty = false
}
