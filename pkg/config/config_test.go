package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
[window]
width = 800
title = "scene"

[render]
present_mode = "mailbox"
clear_color = [0.0, 0.0, 0.0]

[engine]
eval_timeout = "250ms"

[log]
level = "debug"
`))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height, "missing keys keep defaults")
	assert.Equal(t, "scene", cfg.Window.Title)
	assert.Equal(t, PresentMailbox, cfg.Render.PresentMode)
	assert.Equal(t, [3]float64{}, cfg.Render.ClearColor)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.EvalTimeout.Duration)
	assert.Equal(t, 200, cfg.Mesh.Cells)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("[window]\ndepth = 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depth")
}

func TestDecodeRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want string
	}{
		{"size", "[window]\nwidth = 0\n", "window"},
		{"present mode", "[render]\npresent_mode = \"vsync\"\n", "present_mode"},
		{"clear color", "[render]\nclear_color = [2.0, 0.0, 0.0]\n", "clear_color"},
		{"timeout", "[engine]\neval_timeout = \"0s\"\n", "eval_timeout"},
		{"cells", "[mesh]\ncells = 2\n", "cells"},
		{"level", "[log]\nlevel = \"loud\"\n", "level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.toml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeBadDuration(t *testing.T) {
	_, err := Decode(strings.NewReader("[engine]\neval_timeout = \"soon\"\n"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "morpheus.toml")
	require.NoError(t, os.WriteFile(path, []byte("[mesh]\ncells = 64\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Mesh.Cells)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
