// Command stargazer localizes a camera against a map of coded ceiling
// markers: it detects and identifies the markers in each input frame and
// refines the camera pose from the reprojection error.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"

	"github.com/KITcar-Team/stargazer/internal/config"
	"github.com/KITcar-Team/stargazer/internal/detect"
	"github.com/KITcar-Team/stargazer/internal/marker"
	"github.com/KITcar-Team/stargazer/internal/pose"
	"github.com/KITcar-Team/stargazer/internal/version"
)

func main() {
	cfgPath := flag.String("c", "stargazer.yaml", "Path to config file")
	pureGo := flag.Bool("puredetect", false, "Use the pure Go point detector instead of OpenCV")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("stargazer %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	if flag.NArg() == 0 {
		fmt.Println("Usage: stargazer [-c <config>] [-puredetect] <frame.png> [frame2.png ...]")
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	catalog, err := marker.LoadMap(cfg.MapFile)
	if err != nil {
		log.Fatalf("Failed to load map: %v", err)
	}
	camera, err := pose.LoadCamera(cfg.CameraFile)
	if err != nil {
		log.Fatalf("Failed to load camera: %v", err)
	}

	var detector detect.PointDetector = detect.NewBlobDetector()
	if *pureGo {
		detector = detect.NewThresholdDetector()
	}
	finder, err := detect.NewFinder(catalog, cfg.Detector, detector)
	if err != nil {
		log.Fatalf("Failed to create finder: %v", err)
	}
	estimator := pose.NewEstimator(catalog, camera, cfg.Planar)

	// Frames are processed strictly in order: each solve warm-starts from
	// the previous frame's pose.
	for _, path := range flag.Args() {
		img, err := loadFrame(path)
		if err != nil {
			log.Fatalf("Failed to load %s: %v", path, err)
		}

		observations, err := finder.Detect(img)
		if err != nil {
			log.Fatalf("Detection failed on %s: %v", path, err)
		}
		log.Printf("%s: %d landmarks identified", path, len(observations))
		for _, obs := range observations {
			log.Printf("  id %#04x at (%.1f, %.1f)", obs.ID, obs.Corners[0].X, obs.Corners[0].Y)
		}

		summary, err := estimator.Update(observations)
		if err != nil {
			log.Printf("%s: pose not updated: %v", path, err)
			continue
		}
		position, orientation := estimator.Pose()
		log.Printf("%s: pose (%.3f, %.3f, %.3f) q(%.4f, %.4f, %.4f, %.4f) cost %.3g -> %.3g (%d iterations, converged=%v)",
			path, position[0], position[1], position[2],
			orientation[0], orientation[1], orientation[2], orientation[3],
			summary.InitialCost, summary.FinalCost, summary.Iterations, summary.Converged)
	}
}

func loadFrame(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return detect.GrayFrom(img), nil
}
