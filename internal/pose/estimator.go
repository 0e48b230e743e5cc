package pose

import (
	"fmt"
	"math"

	"github.com/KITcar-Team/stargazer/internal/lsq"
	"github.com/KITcar-Team/stargazer/internal/marker"
	"github.com/KITcar-Team/stargazer/pkg/geometry"
)

// cauchyScale is the robust loss scale in pixels: correspondences a few
// pixels off still count as inliers.
const cauchyScale = 9

// cameraBelowMargin is subtracted from the lowest catalog point to bound the
// camera height: the sensor is assumed at least this far below the markers.
const cameraBelowMargin = 1.0

// Solver abstracts the nonlinear least-squares collaborator. The default
// implementation is the lsq Levenberg-Marquardt solver; any implementation
// with the same capability set can be substituted.
type Solver interface {
	Solve(p *lsq.Problem, opts lsq.Options) (lsq.Summary, error)
}

type lmSolver struct{}

func (lmSolver) Solve(p *lsq.Problem, opts lsq.Options) (lsq.Summary, error) {
	return p.Solve(opts)
}

// Estimator refines the sensor pose across frames. It keeps a standing pose
// estimate that warm-starts every solve; the residual problem itself is
// rebuilt from scratch each frame.
//
// An Estimator must not be used from multiple goroutines: frames are
// strictly sequential and each solve depends on the previous result.
type Estimator struct {
	catalog *marker.Map
	planar  bool

	position    []float64 // x, y, z
	orientation []float64 // w, x, y, z
	intrinsics  []float64 // fx, fy, cx, cy
	zUpperBound float64

	initialized bool
	solver      Solver
	options     lsq.Options
}

// NewEstimator creates an estimator over the given catalog and camera. With
// planar set, the pose is constrained to 2D position plus heading.
func NewEstimator(m *marker.Map, cam *Camera, planar bool) *Estimator {
	zBound := math.Inf(1)
	for _, lm := range m.Landmarks {
		for _, pt := range lm.Points {
			zBound = math.Min(zBound, pt.Z)
		}
	}

	opts := lsq.DefaultOptions()
	opts.MaxIterations = 200

	return &Estimator{
		catalog:     m,
		planar:      planar,
		position:    []float64{0, 0, 0},
		orientation: []float64{1, 0, 0, 0},
		intrinsics:  cam.Intrinsics(),
		zUpperBound: zBound - cameraBelowMargin,
		solver:      lmSolver{},
		options:     opts,
	}
}

// SetSolver replaces the least-squares collaborator.
func (e *Estimator) SetSolver(s Solver) {
	e.solver = s
}

// Pose returns the current position and orientation estimate.
func (e *Estimator) Pose() (position [3]float64, orientation [4]float64) {
	copy(position[:], e.position)
	copy(orientation[:], e.orientation)
	return position, orientation
}

// Update refines the pose from one frame's observations. On error the
// standing pose is left untouched. A non-converged solve is reported through
// the summary; the caller decides whether to keep the result.
func (e *Estimator) Update(observations []marker.Observation) (lsq.Summary, error) {
	if len(observations) == 0 {
		return lsq.Summary{}, fmt.Errorf("no landmark observations")
	}

	problem, err := e.buildProblem(observations)
	if err != nil {
		return lsq.Summary{}, err
	}

	if !e.initialized {
		e.seedPosition(observations)
		if e.planar {
			e.position[2] = 0
			e.orientation[1] = 0
			e.orientation[2] = 0
			renormalizeYaw(e.orientation)
		}
		e.initialized = true
	}

	return e.solver.Solve(problem, e.options)
}

// buildProblem assembles the frame's reprojection residuals. One residual
// per observed corner; interior identity points are excluded from the fit,
// which roughly halves the solve time for no measurable accuracy loss.
func (e *Estimator) buildProblem(observations []marker.Observation) (*lsq.Problem, error) {
	problem := lsq.NewProblem()

	for _, obs := range observations {
		lm, ok := e.catalog.Landmarks[obs.ID]
		if !ok {
			return nil, fmt.Errorf("observed id %#04x is not in the catalog", obs.ID)
		}
		observed := len(obs.Corners) + len(obs.IdentityPoints)
		if observed != len(lm.Points) {
			return nil, fmt.Errorf("point count mismatch for id %#04x: %d observed vs %d in catalog",
				obs.ID, observed, len(lm.Points))
		}

		for k := range obs.Corners {
			world := lm.Points[k]
			pixel := obs.Corners[k]
			problem.AddResidualBlock(2, reprojectionCost(world, pixel),
				lsq.NewCauchyLoss(cauchyScale), e.position, e.orientation, e.intrinsics)
		}
	}

	problem.SetConstant(e.intrinsics)

	if e.planar {
		// z is held by the manifold; bounding it as well would drag the
		// fixed coordinate whenever the bound sits below the plane.
		if err := problem.SetManifold(e.position, lsq.NewSubset(3, 2)); err != nil {
			return nil, err
		}
		if err := problem.SetManifold(e.orientation, lsq.YawQuaternion{}); err != nil {
			return nil, err
		}
	} else {
		// Keeping the camera height below the markers rules out the mirrored
		// local minimum with all points behind the camera.
		problem.SetUpperBound(e.position, 2, e.zUpperBound)
		if err := problem.SetManifold(e.orientation, lsq.Quaternion{}); err != nil {
			return nil, err
		}
	}
	return problem, nil
}

// reprojectionCost returns the residual between the predicted projection of
// world and the observed pixel.
func reprojectionCost(world geometry.Point3D, observed geometry.Point2D) lsq.CostFunc {
	return func(params [][]float64, residuals []float64) {
		predicted := Project(world, params[0], params[1], params[2])
		residuals[0] = predicted.X - observed.X
		residuals[1] = predicted.Y - observed.Y
	}
}

// seedPosition initializes the x/y position with the mean of the observed
// landmarks' catalog positions.
func (e *Estimator) seedPosition(observations []marker.Observation) {
	var sumX, sumY float64
	for _, obs := range observations {
		p := e.catalog.Landmarks[obs.ID].Pose.Position
		sumX += p[0]
		sumY += p[1]
	}
	n := float64(len(observations))
	e.position[0] = sumX / n
	e.position[1] = sumY / n
}

func renormalizeYaw(q []float64) {
	n := math.Sqrt(q[0]*q[0] + q[3]*q[3])
	if n == 0 {
		q[0] = 1
		q[3] = 0
		return
	}
	q[0] /= n
	q[3] /= n
}
