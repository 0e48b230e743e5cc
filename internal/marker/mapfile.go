package marker

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Map is the loaded landmark catalog. It is read-only after loading and may
// be shared across estimator instances.
type Map struct {
	Grid       Grid
	MarkerSize float64
	Landmarks  map[uint16]Landmark
}

type mapFile struct {
	GridDim    int            `yaml:"gridDim"`
	MarkerSize float64        `yaml:"markerSize"`
	Landmarks  []LandmarkSpec `yaml:"landmarks"`
}

// LandmarkSpec is one map file entry.
type LandmarkSpec struct {
	ID   uint16 `yaml:"id"`
	Pose Pose   `yaml:"pose"`
}

// LoadMap loads a landmark catalog from a YAML map file.
func LoadMap(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading map file: %w", err)
	}

	var mf mapFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parsing map YAML: %w", err)
	}
	if mf.GridDim == 0 {
		mf.GridDim = DefaultDim
	}
	return NewMap(mf.GridDim, mf.MarkerSize, mf.Landmarks)
}

// NewMap builds a catalog from landmark specs, generating the world point
// pattern of every marker.
func NewMap(gridDim int, markerSize float64, specs []LandmarkSpec) (*Map, error) {
	grid, err := NewGrid(gridDim)
	if err != nil {
		return nil, err
	}
	if markerSize <= 0 {
		return nil, fmt.Errorf("markerSize must be positive, got %g", markerSize)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("map contains no landmarks")
	}

	m := &Map{Grid: grid, MarkerSize: markerSize, Landmarks: make(map[uint16]Landmark, len(specs))}
	for i, spec := range specs {
		if _, dup := m.Landmarks[spec.ID]; dup {
			return nil, fmt.Errorf("landmark[%d]: duplicate id %#04x", i, spec.ID)
		}
		if n := norm4(spec.Pose.Orientation); math.Abs(n-1) > 1e-6 {
			return nil, fmt.Errorf("landmark[%d] (id %#04x): orientation quaternion norm %g != 1", i, spec.ID, n)
		}
		lm, err := NewLandmark(spec.ID, spec.Pose, grid, markerSize)
		if err != nil {
			return nil, fmt.Errorf("landmark[%d]: %w", i, err)
		}
		m.Landmarks[spec.ID] = lm
	}
	return m, nil
}

// IDs returns the catalog ids in ascending order.
func (m *Map) IDs() []uint16 {
	ids := make([]uint16, 0, len(m.Landmarks))
	for id := range m.Landmarks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Save writes the catalog back to a YAML map file.
func (m *Map) Save(path string) error {
	mf := mapFile{GridDim: m.Grid.Dim(), MarkerSize: m.MarkerSize}
	for _, id := range m.IDs() {
		mf.Landmarks = append(mf.Landmarks, LandmarkSpec{ID: id, Pose: m.Landmarks[id].Pose})
	}
	data, err := yaml.Marshal(&mf)
	if err != nil {
		return fmt.Errorf("marshaling map YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing map file: %w", err)
	}
	return nil
}

func norm4(q [4]float64) float64 {
	return math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
}
