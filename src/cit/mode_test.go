package cit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daemonless/dbuild/src/labels"
)

func TestModeOrdering(t *testing.T) {
	assert.True(t, ModeShell < ModePort)
	assert.True(t, ModePort < ModeHealth)
	assert.True(t, ModeHealth < ModeScreenshot)
}

func TestParseMode(t *testing.T) {
	for name, want := range map[string]Mode{
		"shell":      ModeShell,
		"port":       ModePort,
		"health":     ModeHealth,
		"screenshot": ModeScreenshot,
	} {
		got, ok := ParseMode(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got)
	}

	_, ok := ParseMode("bogus")
	assert.False(t, ok)
}

func TestSelectAutoPicksHighestSupported(t *testing.T) {
	tests := []struct {
		name string
		eff  labels.Effective
		caps Capabilities
		want Mode
	}{
		{"nothing resolved", labels.Effective{}, Capabilities{}, ModeShell},
		{"port only", labels.Effective{Port: 8080}, Capabilities{}, ModePort},
		{"health path", labels.Effective{Port: 8080, Health: "/"}, Capabilities{}, ModeHealth},
		{"health without port", labels.Effective{Health: "/ping"}, Capabilities{}, ModeHealth},
		{"baseline present", labels.Effective{Port: 8080, Health: "/"}, Capabilities{Baseline: "baseline.png"}, ModeScreenshot},
		{"baseline but missing deps", labels.Effective{Health: "/"},
			Capabilities{Baseline: "baseline.png", MissingDeps: []string{"chromium"}}, ModeHealth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, notes, err := Select("", tt.eff, tt.caps)
			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
			assert.Empty(t, notes)
		})
	}
}

func TestSelectExplicitModeHonored(t *testing.T) {
	mode, notes, err := Select("port", labels.Effective{Port: 8080, Health: "/"}, Capabilities{})
	require.NoError(t, err)
	assert.Equal(t, ModePort, mode)
	assert.Empty(t, notes)
}

func TestSelectScreenshotDowngradesWithoutBaseline(t *testing.T) {
	mode, notes, err := Select("screenshot", labels.Effective{Port: 8080, Health: "/"}, Capabilities{})
	require.NoError(t, err)
	assert.Equal(t, ModeHealth, mode)
	require.NotEmpty(t, notes)
	assert.Contains(t, notes[0], "screenshot")
	assert.Contains(t, notes[len(notes)-1], "downgrading")
}

func TestSelectScreenshotDowngradesToShell(t *testing.T) {
	// No baseline, no health, no port: all the way down.
	mode, notes, err := Select("screenshot", labels.Effective{}, Capabilities{})
	require.NoError(t, err)
	assert.Equal(t, ModeShell, mode)
	assert.NotEmpty(t, notes)
}

func TestSelectUnknownMode(t *testing.T) {
	_, _, err := Select("banana", labels.Effective{}, Capabilities{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "banana")
}

func TestSelectShellAlwaysSupported(t *testing.T) {
	mode, notes, err := Select("shell", labels.Effective{}, Capabilities{})
	require.NoError(t, err)
	assert.Equal(t, ModeShell, mode)
	assert.Empty(t, notes)
}
