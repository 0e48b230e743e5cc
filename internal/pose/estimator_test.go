package pose_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KITcar-Team/stargazer/internal/detect"
	"github.com/KITcar-Team/stargazer/internal/lsq"
	"github.com/KITcar-Team/stargazer/internal/marker"
	"github.com/KITcar-Team/stargazer/internal/pose"
	"github.com/KITcar-Team/stargazer/internal/render"
	"github.com/KITcar-Team/stargazer/pkg/geometry"
)

func ceilingPose(x, y float64) marker.Pose {
	p := marker.IdentityPose()
	p.Position = [3]float64{x, y, 2.5}
	return p
}

func ceilingCatalog(t *testing.T) *marker.Map {
	t.Helper()
	specs := []marker.LandmarkSpec{
		{ID: 0x0012, Pose: ceilingPose(-0.9, -0.5)},
		{ID: 0x0210, Pose: ceilingPose(0.5, -0.5)},
		{ID: 0x0444, Pose: ceilingPose(-0.2, 0.5)},
	}
	m, err := marker.NewMap(marker.DefaultDim, 0.3, specs)
	require.NoError(t, err)
	return m
}

func testCamera() *pose.Camera {
	return &pose.Camera{Fx: 500, Fy: 500, Cx: 320, Cy: 240}
}

// detectFrame renders the catalog from the given ground-truth pose and runs
// the recognition pipeline on the result.
func detectFrame(t *testing.T, catalog *marker.Map, position [3]float64, orientation [4]float64) []marker.Observation {
	t.Helper()
	img := render.Frame(catalog, position, orientation, testCamera(), 640, 480, 2.5)

	// The markers project to ~65px edges, and the x1y1 corner can arrive up
	// to ~1.2 edges from the nearest already-clustered marker point. The
	// radius must cover that gap while staying well under the >150px spacing
	// between markers, or clusters split (or merge) and fail the size filter.
	params := detect.DefaultParams()
	params.MaxClusterRadius = 85

	finder, err := detect.NewFinder(catalog, params, detect.NewThresholdDetector())
	require.NoError(t, err)

	observations, err := finder.Detect(img)
	require.NoError(t, err)
	return observations
}

func yawQuat(yaw float64) [4]float64 {
	return [4]float64{math.Cos(yaw / 2), 0, 0, math.Sin(yaw / 2)}
}

func quatDot(a, b [4]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
}

func TestEstimatorEndToEnd(t *testing.T) {
	catalog := ceilingCatalog(t)
	truePosition := [3]float64{0.1, -0.05, 0.2}
	trueOrientation := yawQuat(0.1)

	observations := detectFrame(t, catalog, truePosition, trueOrientation)
	require.Len(t, observations, 3)

	seen := map[uint16]bool{}
	for _, obs := range observations {
		assert.False(t, seen[obs.ID], "duplicate id %#04x", obs.ID)
		seen[obs.ID] = true
		_, inCatalog := catalog.Landmarks[obs.ID]
		assert.True(t, inCatalog, "id %#04x not in catalog", obs.ID)
	}

	est := pose.NewEstimator(catalog, testCamera(), false)
	summary, err := est.Update(observations)
	require.NoError(t, err)
	assert.Less(t, summary.FinalCost, summary.InitialCost)

	position, orientation := est.Pose()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, truePosition[i], position[i], 0.02, "position[%d]", i)
	}
	assert.Greater(t, math.Abs(quatDot(orientation, trueOrientation)), 0.999)

	// A second frame from the same pose warm-starts at the solution and must
	// stay there.
	summary, err = est.Update(observations)
	require.NoError(t, err)
	position, _ = est.Pose()
	assert.InDelta(t, truePosition[0], position[0], 0.02)
	assert.InDelta(t, truePosition[1], position[1], 0.02)
}

func TestEstimatorPlanar(t *testing.T) {
	catalog := ceilingCatalog(t)
	truePosition := [3]float64{0.15, -0.1, 0}
	trueOrientation := yawQuat(0.2)

	observations := detectFrame(t, catalog, truePosition, trueOrientation)
	require.Len(t, observations, 3)

	est := pose.NewEstimator(catalog, testCamera(), true)
	_, err := est.Update(observations)
	require.NoError(t, err)

	position, orientation := est.Pose()
	assert.Equal(t, 0.0, position[2], "planar pose must keep z fixed")
	assert.Equal(t, 0.0, orientation[1])
	assert.Equal(t, 0.0, orientation[2])
	assert.InDelta(t, truePosition[0], position[0], 0.02)
	assert.InDelta(t, truePosition[1], position[1], 0.02)
	assert.Greater(t, math.Abs(quatDot(orientation, trueOrientation)), 0.999)
}

func TestEstimatorPlanarLowCeiling(t *testing.T) {
	// Markers mounted at 0.8m put the camera-height bound below zero; the
	// planar pose must stay pinned to the z=0 plane regardless.
	p := marker.IdentityPose()
	p.Position = [3]float64{0.2, 0.1, 0.8}
	catalog, err := marker.NewMap(marker.DefaultDim, 0.3, []marker.LandmarkSpec{{ID: 0x0012, Pose: p}})
	require.NoError(t, err)

	truePosition := [3]float64{0.05, 0.02, 0}
	trueOrientation := yawQuat(0.1)

	lm := catalog.Landmarks[0x0012]
	obs := marker.Observation{ID: 0x0012}
	intrinsics := testCamera().Intrinsics()
	for i, pt := range lm.Points {
		px := pose.Project(pt, truePosition[:], trueOrientation[:], intrinsics)
		if i < 3 {
			obs.Corners[i] = px
		} else {
			obs.IdentityPoints = append(obs.IdentityPoints, px)
		}
	}

	est := pose.NewEstimator(catalog, testCamera(), true)
	_, err = est.Update([]marker.Observation{obs})
	require.NoError(t, err)

	position, orientation := est.Pose()
	assert.Equal(t, 0.0, position[2])
	assert.InDelta(t, truePosition[0], position[0], 1e-3)
	assert.InDelta(t, truePosition[1], position[1], 1e-3)
	assert.Greater(t, math.Abs(quatDot(orientation, trueOrientation)), 0.9999)
}

func TestEstimatorRejectsEmptyFrame(t *testing.T) {
	est := pose.NewEstimator(ceilingCatalog(t), testCamera(), false)
	_, err := est.Update(nil)
	assert.Error(t, err)
}

func TestEstimatorMismatchGuard(t *testing.T) {
	catalog := ceilingCatalog(t)
	est := pose.NewEstimator(catalog, testCamera(), false)

	// 0x0012 has two identity points in the catalog; five observed points
	// cannot belong to it.
	bad := marker.Observation{
		ID:             0x0012,
		IdentityPoints: make([]geometry.Point2D, 5),
	}
	_, err := est.Update([]marker.Observation{bad})
	require.ErrorContains(t, err, "mismatch")

	position, orientation := est.Pose()
	assert.Equal(t, [3]float64{}, position, "failed update must not move the pose")
	assert.Equal(t, [4]float64{1, 0, 0, 0}, orientation)
}

func TestEstimatorUnknownID(t *testing.T) {
	est := pose.NewEstimator(ceilingCatalog(t), testCamera(), false)
	bad := marker.Observation{ID: 0x0666}
	_, err := est.Update([]marker.Observation{bad})
	assert.ErrorContains(t, err, "not in the catalog")
}

type stubSolver struct {
	called  bool
	summary lsq.Summary
}

func (s *stubSolver) Solve(p *lsq.Problem, opts lsq.Options) (lsq.Summary, error) {
	s.called = true
	return s.summary, nil
}

func TestEstimatorSolverSubstitution(t *testing.T) {
	catalog := ceilingCatalog(t)
	est := pose.NewEstimator(catalog, testCamera(), false)

	stub := &stubSolver{summary: lsq.Summary{Converged: true, Message: "stub"}}
	est.SetSolver(stub)

	obs := marker.Observation{
		ID:             0x0012,
		IdentityPoints: make([]geometry.Point2D, 2),
	}
	summary, err := est.Update([]marker.Observation{obs})
	require.NoError(t, err)
	assert.True(t, stub.called)
	assert.Equal(t, "stub", summary.Message)
}
