package detect

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/KITcar-Team/stargazer/pkg/geometry"
)

// BlobDetector finds bright marker points with OpenCV's SimpleBlobDetector,
// configured the way the mapping tooling runs it: all shape filters off,
// full threshold range with step 50.
type BlobDetector struct{}

// NewBlobDetector creates a BlobDetector.
func NewBlobDetector() *BlobDetector {
	return &BlobDetector{}
}

// Detect returns the keypoint centroids found in the frame.
func (d *BlobDetector) Detect(img *image.Gray) ([]geometry.Point2D, error) {
	mat, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil, fmt.Errorf("converting image: %w", err)
	}
	defer mat.Close()

	params := gocv.NewSimpleBlobDetectorParams()
	params.SetFilterByArea(false)
	params.SetFilterByCircularity(false)
	params.SetFilterByColor(false)
	params.SetFilterByConvexity(false)
	params.SetFilterByInertia(false)
	params.SetMaxArea(math.MaxFloat32)
	params.SetMinArea(0)
	params.SetMinDistBetweenBlobs(0)
	params.SetMinRepeatability(0)
	params.SetMinThreshold(0)
	params.SetMaxThreshold(255)
	params.SetThresholdStep(50)

	detector := gocv.NewSimpleBlobDetectorWithParams(params)
	defer detector.Close()

	keypoints := detector.DetectKeyPoints(mat)
	points := make([]geometry.Point2D, len(keypoints))
	for i, kp := range keypoints {
		points[i] = geometry.Point2D{X: kp.X, Y: kp.Y}
	}
	return points, nil
}
