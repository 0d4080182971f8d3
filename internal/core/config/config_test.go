package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultProfile(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultProfile, c.Name)
	assert.Equal(t, 32, c.WarpSize)
	assert.Equal(t, 4, c.QuadrantsPerSM)
	assert.Equal(t, 3, c.NumberOfSuffix)
	assert.Greater(t, c.FBLatency, c.L2Latency)
}

func TestLoadProfileWithExtension(t *testing.T) {
	c, err := LoadProfile("a100.yaml")
	require.NoError(t, err)
	assert.Equal(t, "a100", c.Name)
	assert.Equal(t, "8.0", c.ComputeCapability)
}

func TestLoadUnknownProfile(t *testing.T) {
	_, err := Load("voodoo2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProfileNotFound))
	assert.Contains(t, err.Error(), "gtx1650")
}

func TestListProfiles(t *testing.T) {
	names := List()
	assert.Contains(t, names, "gtx1650")
	assert.Contains(t, names, "rtx3090")
	assert.IsIncreasing(t, names)
}

func TestLoadFileFromDisk(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "custom.yaml")
	data := strings.Replace(profileSource(t, DefaultProfile), "quadrants_per_sm: 4", "quadrants_per_sm: 2", 1)
	require.NoError(t, os.WriteFile(filename, []byte(data), 0o600))

	c, err := Load(strings.TrimSuffix(filename, ".yaml"))
	require.NoError(t, err)
	assert.Equal(t, 2, c.QuadrantsPerSM)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("warp_size: 32\nwarp_sise: 16\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestValidateReportsMissingConstants(t *testing.T) {
	c := &Configuration{Name: "broken", WarpSize: 32}
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Contains(t, err.Error(), "quadrants_per_sm")
	assert.Contains(t, err.Error(), "fb_latency")
	assert.NotContains(t, err.Error(), "warp_size")
}

func TestCloneDoesNotAlias(t *testing.T) {
	c, err := LoadProfile(DefaultProfile)
	require.NoError(t, err)

	cp := c.Clone()
	cp.LowL1HitRate = 0.99
	assert.NotEqual(t, c.LowL1HitRate, cp.LowL1HitRate)
	assert.Contains(t, c.String(), "warp_size=32")
}

func profileSource(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "..", "configs", name+".yaml"))
	require.NoError(t, err)
	return string(data)
}
