package csgbuf

import (
	"errors"
	"testing"

	"github.com/chazu/morpheus/pkg/csg"
	"github.com/chazu/morpheus/pkg/gpu"
	"github.com/chazu/morpheus/pkg/gpu/gputest"
	"github.com/chazu/morpheus/pkg/gpunode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const layout = gputest.Layout("csg")

// encoded returns the payload and node count for a union of n spheres
// folded into 2n-1 nodes.
func encoded(t *testing.T, spheres int) ([]byte, uint32) {
	t.Helper()
	children := make([]csg.Object, spheres)
	for i := range children {
		children[i] = csg.Sphere(float32(i + 1))
	}
	tree, err := csg.Binarize(csg.Union(children...))
	require.NoError(t, err)
	return gpunode.Encode(tree), gpunode.NodeCount(tree)
}

func header(t *testing.T, b *gputest.Buffer) uint32 {
	t.Helper()
	n, err := gpunode.DecodeHeader(b.Data)
	require.NoError(t, err)
	return n
}

func TestCreate(t *testing.T) {
	dev := gputest.New()
	payload, n := encoded(t, 2)
	require.Equal(t, uint32(3), n)

	buf, err := Create(dev, layout, "obj", payload, n)
	require.NoError(t, err)

	require.Len(t, dev.Buffers, 2)
	hdr, nodes := dev.Buffers[0], dev.Buffers[1]
	assert.Equal(t, uint64(gpunode.HeaderSize), hdr.Size())
	assert.Equal(t, gpu.UsageUniform|gpu.UsageCopyDst, hdr.Usage)
	assert.Equal(t, uint64(len(payload)), nodes.Size())
	assert.Equal(t, gpu.UsageStorage|gpu.UsageCopyDst, nodes.Usage)
	assert.Equal(t, payload, nodes.Data)
	assert.Equal(t, uint32(3), header(t, hdr))

	require.Len(t, dev.BindGroups, 1)
	bg := dev.BindGroups[0]
	assert.Same(t, bg, buf.BindGroup())
	assert.Equal(t, layout, bg.Layout)
	require.Len(t, bg.Entries, 2)
	assert.Equal(t, uint32(BindingNodes), bg.Entries[0].Binding)
	assert.Same(t, nodes, bg.Entries[0].Buffer)
	assert.Equal(t, uint32(BindingHeader), bg.Entries[1].Binding)
	assert.Same(t, hdr, bg.Entries[1].Buffer)

	assert.Equal(t, uint32(3), buf.Capacity())
	assert.Equal(t, uint32(3), buf.Count())
}

func TestUpdateGrowReallocates(t *testing.T) {
	dev := gputest.New()
	small, n3 := encoded(t, 2)
	big, n5 := encoded(t, 3)
	require.Equal(t, uint32(5), n5)

	buf, err := Create(dev, layout, "obj", small, n3)
	require.NoError(t, err)
	oldNodes := dev.Buffers[1]
	oldGroup := dev.BindGroups[0]

	require.NoError(t, buf.Update(dev, big, n5))

	assert.Equal(t, 1, buf.Reallocations())
	assert.Equal(t, uint32(5), buf.Capacity())
	assert.True(t, oldNodes.Released, "old node buffer must be released")
	assert.True(t, oldGroup.Released, "old bind group must be released")

	require.Len(t, dev.Buffers, 3)
	newNodes := dev.Buffers[2]
	assert.Equal(t, uint64(len(big)), newNodes.Size())
	assert.Equal(t, big, newNodes.Data)

	require.Len(t, dev.BindGroups, 2)
	assert.Same(t, dev.BindGroups[1], buf.BindGroup())
	assert.Same(t, newNodes, dev.BindGroups[1].Entries[0].Buffer)
	assert.Equal(t, uint32(5), header(t, dev.Buffers[0]))
	assert.Len(t, dev.Live(), 2)
}

func TestUpdateShrinkReusesAllocation(t *testing.T) {
	dev := gputest.New()
	big, n5 := encoded(t, 3)
	small, n3 := encoded(t, 2)

	buf, err := Create(dev, layout, "obj", big, n5)
	require.NoError(t, err)
	nodes := dev.Buffers[1]
	dev.ResetWrites()

	require.NoError(t, buf.Update(dev, small, n3))

	assert.Zero(t, buf.Reallocations())
	assert.Len(t, dev.Buffers, 2, "no new allocation expected")
	assert.Len(t, dev.BindGroups, 1, "bind group must be kept")
	assert.Equal(t, uint32(5), buf.Capacity())
	assert.Equal(t, uint32(3), buf.Count())

	require.Len(t, dev.Writes, 2)
	assert.Equal(t, gputest.Write{BufferID: dev.Buffers[0].ID, Offset: 0, Len: gpunode.HeaderSize}, dev.Writes[0])
	assert.Equal(t, gputest.Write{BufferID: nodes.ID, Offset: 0, Len: len(small)}, dev.Writes[1])

	assert.Equal(t, small, nodes.Data[:len(small)])
	assert.Equal(t, big[len(small):], nodes.Data[len(small):], "records past the prefix are left alone")
	assert.Equal(t, uint32(3), header(t, dev.Buffers[0]))
}

func TestUpdateSameSizeInPlace(t *testing.T) {
	dev := gputest.New()
	payload, n := encoded(t, 2)
	buf, err := Create(dev, layout, "obj", payload, n)
	require.NoError(t, err)

	other, _ := encoded(t, 2)
	other[gpunode.OffsetRadius] ^= 0xff
	require.NoError(t, buf.Update(dev, other, n))
	assert.Zero(t, buf.Reallocations())
	assert.Equal(t, other, dev.Buffers[1].Data)
}

func TestUpdateAllocationFailureKeepsState(t *testing.T) {
	dev := gputest.New()
	small, n3 := encoded(t, 2)
	big, n5 := encoded(t, 3)

	buf, err := Create(dev, layout, "obj", small, n3)
	require.NoError(t, err)
	group := buf.BindGroup()

	dev.FailAfter = 0
	err = buf.Update(dev, big, n5)
	require.Error(t, err)

	assert.Same(t, group, buf.BindGroup())
	assert.Equal(t, uint32(3), buf.Capacity())
	assert.Equal(t, uint32(3), buf.Count())
	assert.Equal(t, uint32(3), header(t, dev.Buffers[0]))
	assert.False(t, dev.Buffers[1].Released)
}

// failWritesTo fails every write to the buffer with the given id.
func failWritesTo(id int) func(gputest.Write) error {
	return func(w gputest.Write) error {
		if w.BufferID == id {
			return errors.New("injected write failure")
		}
		return nil
	}
}

func TestUpdateInPlaceNodeWriteFailureRestoresHeader(t *testing.T) {
	dev := gputest.New()
	big, n5 := encoded(t, 3)
	small, n3 := encoded(t, 2)
	buf, err := Create(dev, layout, "obj", big, n5)
	require.NoError(t, err)
	hdr, nodes := dev.Buffers[0], dev.Buffers[1]

	dev.FailWrite = failWritesTo(nodes.ID)
	require.Error(t, buf.Update(dev, small, n3))

	assert.Equal(t, uint32(5), buf.Count())
	assert.Equal(t, uint32(5), header(t, hdr))
	assert.Equal(t, big, nodes.Data)
}

func TestUpdateInPlaceHeaderWriteFailureLeavesNodes(t *testing.T) {
	dev := gputest.New()
	big, n5 := encoded(t, 3)
	small, n3 := encoded(t, 2)
	buf, err := Create(dev, layout, "obj", big, n5)
	require.NoError(t, err)
	hdr, nodes := dev.Buffers[0], dev.Buffers[1]

	dev.FailWrite = failWritesTo(hdr.ID)
	require.Error(t, buf.Update(dev, small, n3))

	assert.Equal(t, uint32(5), buf.Count())
	assert.Equal(t, uint32(5), header(t, hdr))
	assert.Equal(t, big, nodes.Data)
}

func TestUpdateReallocHeaderWriteFailureKeepsState(t *testing.T) {
	dev := gputest.New()
	small, n3 := encoded(t, 2)
	big, n5 := encoded(t, 3)
	buf, err := Create(dev, layout, "obj", small, n3)
	require.NoError(t, err)
	hdr, nodes := dev.Buffers[0], dev.Buffers[1]
	group := buf.BindGroup()

	dev.FailWrite = failWritesTo(hdr.ID)
	require.Error(t, buf.Update(dev, big, n5))

	assert.Same(t, group, buf.BindGroup())
	assert.Zero(t, buf.Reallocations())
	assert.Equal(t, uint32(3), buf.Capacity())
	assert.Equal(t, uint32(3), buf.Count())
	assert.Equal(t, uint32(3), header(t, hdr))
	assert.False(t, nodes.Released)
	assert.Equal(t, small, nodes.Data)

	require.Len(t, dev.Buffers, 3)
	assert.True(t, dev.Buffers[2].Released, "new allocation must be released")
	require.Len(t, dev.BindGroups, 2)
	assert.True(t, dev.BindGroups[1].Released, "new bind group must be released")
	assert.Len(t, dev.Live(), 2)

	dev.FailWrite = nil
	require.NoError(t, buf.Update(dev, big, n5))
	assert.Equal(t, uint32(5), header(t, hdr))
}

func TestPayloadMismatch(t *testing.T) {
	dev := gputest.New()
	payload, _ := encoded(t, 2)

	_, err := Create(dev, layout, "obj", payload, 2)
	assert.ErrorIs(t, err, ErrPayloadSize)
	_, err = Create(dev, layout, "obj", nil, 0)
	assert.ErrorIs(t, err, ErrPayloadSize)

	buf, err := Create(dev, layout, "obj", payload, 3)
	require.NoError(t, err)
	assert.ErrorIs(t, buf.Update(dev, payload[:gpunode.RecordSize], 3), ErrPayloadSize)
}

func TestCreateFailureReleasesHeader(t *testing.T) {
	dev := gputest.New()
	dev.FailAfter = 1
	payload, n := encoded(t, 1)

	_, err := Create(dev, layout, "obj", payload, n)
	require.Error(t, err)
	assert.Empty(t, dev.Live())
}

func TestRelease(t *testing.T) {
	dev := gputest.New()
	payload, n := encoded(t, 1)
	buf, err := Create(dev, layout, "obj", payload, n)
	require.NoError(t, err)

	buf.Release()
	buf.Release()
	assert.Empty(t, dev.Live())
	assert.True(t, dev.BindGroups[0].Released)
	assert.ErrorIs(t, buf.Update(dev, payload, n), ErrReleased)
}
