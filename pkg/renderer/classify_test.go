package renderer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Action
	}{
		{nil, ActionNone},
		{errors.New("Surface timed out"), ActionSkip},
		{errors.New("surface texture is Outdated"), ActionReconfigure},
		{errors.New("Lost"), ActionReconfigure},
		{errors.New("OutOfMemory"), ActionFatal},
		{errors.New("device: out of memory"), ActionFatal},
		{fmt.Errorf("frame: %w", ErrOutOfMemory), ActionFatal},
		{fmt.Errorf("%w: %w", ErrSurface, errors.New("lost")), ActionReconfigure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "%v", tt.err)
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "none", ActionNone.String())
	assert.Equal(t, "skip", ActionSkip.String())
	assert.Equal(t, "reconfigure", ActionReconfigure.String())
	assert.Equal(t, "fatal", ActionFatal.String())
	assert.Equal(t, "unknown", Action(42).String())
}

func TestPresentMode(t *testing.T) {
	assert.Equal(t, presentMode("fifo"), presentMode(""))
	assert.NotEqual(t, presentMode("fifo"), presentMode("immediate"))
	assert.NotEqual(t, presentMode("fifo"), presentMode("mailbox"))
}

func TestClampSize(t *testing.T) {
	assert.Equal(t, uint32(1), clampSize(0))
	assert.Equal(t, uint32(1), clampSize(-5))
	assert.Equal(t, uint32(720), clampSize(720))
}
