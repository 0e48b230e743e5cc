// Command markergen writes a demo landmark map and optionally renders a
// synthetic frame of it from a given camera position, for testing detection
// and localization end to end.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/KITcar-Team/stargazer/internal/marker"
	"github.com/KITcar-Team/stargazer/internal/pose"
	"github.com/KITcar-Team/stargazer/internal/render"
)

func main() {
	mapPath := flag.String("map", "map.yaml", "Output map file")
	framePath := flag.String("frame", "", "Optional output PNG of a rendered frame")
	ids := flag.String("ids", "0x0012,0x0210,0x0444", "Comma-separated marker ids")
	height := flag.Float64("height", 2.5, "Marker mounting height in meters")
	size := flag.Float64("size", 0.3, "Marker edge length in meters")
	spacing := flag.Float64("spacing", 0.8, "Marker grid spacing in meters")
	camX := flag.Float64("x", 0, "Camera x for the rendered frame")
	camY := flag.Float64("y", 0, "Camera y for the rendered frame")
	flag.Parse()

	specs, err := demoSpecs(*ids, *height, *spacing)
	if err != nil {
		log.Fatalf("Bad ids: %v", err)
	}

	m, err := marker.NewMap(marker.DefaultDim, *size, specs)
	if err != nil {
		log.Fatalf("Failed to build map: %v", err)
	}
	if err := m.Save(*mapPath); err != nil {
		log.Fatalf("Failed to save map: %v", err)
	}
	log.Printf("Wrote %d landmarks to %s", len(specs), *mapPath)

	if *framePath == "" {
		return
	}

	cam := &pose.Camera{Fx: 500, Fy: 500, Cx: 320, Cy: 240}
	img := render.Frame(m, [3]float64{*camX, *camY, 0}, [4]float64{1, 0, 0, 0}, cam, 640, 480, 2.5)

	f, err := os.Create(*framePath)
	if err != nil {
		log.Fatalf("Failed to create frame file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		log.Fatalf("Failed to encode frame: %v", err)
	}
	log.Printf("Rendered frame from (%g, %g, 0) to %s", *camX, *camY, *framePath)
}

// demoSpecs lays the markers out on a row at the given height, facing down.
func demoSpecs(idList string, height, spacing float64) ([]marker.LandmarkSpec, error) {
	var specs []marker.LandmarkSpec
	for i, field := range strings.Split(idList, ",") {
		field = strings.TrimSpace(field)
		id, err := strconv.ParseUint(field, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("id %q: %w", field, err)
		}
		p := marker.IdentityPose()
		p.Position = [3]float64{float64(i) * spacing, 0, height}
		specs = append(specs, marker.LandmarkSpec{ID: uint16(id), Pose: p})
	}
	return specs, nil
}
