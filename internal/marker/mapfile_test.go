package marker

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpecs() []LandmarkSpec {
	p1 := IdentityPose()
	p1.Position = [3]float64{0, 0, 2.5}
	p2 := IdentityPose()
	p2.Position = [3]float64{1.2, 0.4, 2.5}
	return []LandmarkSpec{
		{ID: 0x0210, Pose: p2},
		{ID: 0x0012, Pose: p1},
	}
}

func TestNewMapValidation(t *testing.T) {
	specs := testSpecs()

	t.Run("valid", func(t *testing.T) {
		m, err := NewMap(DefaultDim, 0.3, specs)
		require.NoError(t, err)
		assert.Len(t, m.Landmarks, 2)
		assert.Equal(t, []uint16{0x0012, 0x0210}, m.IDs())
	})

	t.Run("duplicate id", func(t *testing.T) {
		dup := append([]LandmarkSpec{specs[0]}, specs...)
		_, err := NewMap(DefaultDim, 0.3, dup)
		assert.ErrorContains(t, err, "duplicate")
	})

	t.Run("bad quaternion", func(t *testing.T) {
		bad := testSpecs()
		bad[0].Pose.Orientation = [4]float64{1, 1, 0, 0}
		_, err := NewMap(DefaultDim, 0.3, bad)
		assert.ErrorContains(t, err, "norm")
	})

	t.Run("bad size", func(t *testing.T) {
		_, err := NewMap(DefaultDim, 0, specs)
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewMap(DefaultDim, 0.3, nil)
		assert.Error(t, err)
	})
}

func TestMapSaveLoadRoundTrip(t *testing.T) {
	m, err := NewMap(DefaultDim, 0.3, testSpecs())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, m.Save(path))

	loaded, err := LoadMap(path)
	require.NoError(t, err)

	assert.Equal(t, m.Grid.Dim(), loaded.Grid.Dim())
	assert.InDelta(t, m.MarkerSize, loaded.MarkerSize, 1e-12)
	require.Equal(t, m.IDs(), loaded.IDs())

	for _, id := range m.IDs() {
		a, b := m.Landmarks[id], loaded.Landmarks[id]
		require.Len(t, b.Points, len(a.Points))
		for i := range a.Points {
			assert.InDelta(t, a.Points[i].X, b.Points[i].X, 1e-9)
			assert.InDelta(t, a.Points[i].Y, b.Points[i].Y, 1e-9)
			assert.InDelta(t, a.Points[i].Z, b.Points[i].Z, 1e-9)
		}
	}
}

func TestLoadMapMissingFile(t *testing.T) {
	_, err := LoadMap(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
