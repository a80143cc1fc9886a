package gpu

import "testing"

func TestAlignedSize(t *testing.T) {
	tests := []struct{ in, want uint64 }{
		{0, 0}, {1, 4}, {4, 4}, {5, 8}, {48, 48}, {49, 52},
	}
	for _, tt := range tests {
		if got := AlignedSize(tt.in); got != tt.want {
			t.Errorf("AlignedSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBufferUsageString(t *testing.T) {
	if got := (UsageStorage | UsageCopyDst).String(); got != "copy-dst|storage" {
		t.Errorf("got %q", got)
	}
	if got := BufferUsage(0).String(); got != "none" {
		t.Errorf("got %q", got)
	}
}
