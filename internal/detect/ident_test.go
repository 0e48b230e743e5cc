package detect

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KITcar-Team/stargazer/internal/marker"
	"github.com/KITcar-Team/stargazer/pkg/geometry"
)

// testCorners places the marker frame at x0y0=(40,40), x1y0=(40,160),
// x1y1=(160,160).
func testCorners() [3]geometry.Point2D {
	return [3]geometry.Point2D{{X: 40, Y: 40}, {X: 40, Y: 160}, {X: 160, Y: 160}}
}

func brightSquare(img *image.Gray, p geometry.Point2D) {
	cx, cy := int(p.X), int(p.Y)
	for y := cy - 1; y <= cy+1; y++ {
		for x := cx - 1; x <= cx+1; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
}

func TestDecodeForwardRoundTrip(t *testing.T) {
	grid := marker.DefaultGrid()
	corners := testCorners()
	toImage := frameTransform(corners[0], corners[1], corners[2])

	// Every valid id must survive encode, projection into image coordinates
	// and forward decoding unchanged.
	checked := 0
	for id := uint16(1); id != 0; id++ {
		if !grid.ValidID(id) {
			continue
		}
		unit, err := grid.Encode(id)
		require.NoError(t, err)

		h := Hypothesis{Corners: corners}
		for _, p := range unit {
			h.IdentityPoints = append(h.IdentityPoints, toImage.Apply(p))
		}

		got, ok := decodeForward(h, grid, newIDSet([]uint16{id}))
		if !ok || got != id {
			t.Fatalf("id %#04x decoded as %#04x (ok=%v)", id, got, ok)
		}
		checked++
	}
	assert.Equal(t, 1<<13-1, checked)
}

func TestDecodeForwardClaimsOnce(t *testing.T) {
	grid := marker.DefaultGrid()
	corners := testCorners()
	toImage := frameTransform(corners[0], corners[1], corners[2])

	unit, err := grid.Encode(0x0012)
	require.NoError(t, err)
	h := Hypothesis{Corners: corners}
	for _, p := range unit {
		h.IdentityPoints = append(h.IdentityPoints, toImage.Apply(p))
	}

	valid := newIDSet([]uint16{0x0012})
	_, ok := decodeForward(h, grid, valid)
	require.True(t, ok)

	// The id is consumed; a second identical hypothesis must fail.
	_, ok = decodeForward(h, grid, valid)
	assert.False(t, ok)
}

func TestDecodeForwardEmptyHypothesis(t *testing.T) {
	h := Hypothesis{Corners: testCorners()}
	_, ok := decodeForward(h, marker.DefaultGrid(), newIDSet([]uint16{0x0012}))
	assert.False(t, ok, "no identity points decode to id 0, which is never valid")
}

func TestDecodeBackwardMatchesForward(t *testing.T) {
	grid := marker.DefaultGrid()
	corners := testCorners()
	toImage := frameTransform(corners[0], corners[1], corners[2])

	// Light up the image at the id points of 0x0012: cells (1,0) and (0,1).
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	unit, err := grid.Encode(0x0012)
	require.NoError(t, err)
	var projected []geometry.Point2D
	for _, p := range unit {
		pt := toImage.Apply(p)
		projected = append(projected, pt)
		brightSquare(img, pt)
	}

	h := Hypothesis{Corners: corners}
	id, ok := decodeBackward(&h, img, grid, 128, newIDSet([]uint16{0x0012}))
	require.True(t, ok)
	assert.Equal(t, uint16(0x0012), id)

	// The identity points are repopulated with the bright sample locations.
	require.Len(t, h.IdentityPoints, len(projected))
	for i := range projected {
		assert.InDelta(t, projected[i].X, h.IdentityPoints[i].X, 1e-9)
		assert.InDelta(t, projected[i].Y, h.IdentityPoints[i].Y, 1e-9)
	}
}

func TestDecodeBackwardOutOfImage(t *testing.T) {
	// The corner triple predicts grid cells beyond the right image border.
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	h := Hypothesis{Corners: [3]geometry.Point2D{
		{X: 190, Y: 10}, {X: 190, Y: 130}, {X: 310, Y: 130},
	}}
	_, ok := decodeBackward(&h, img, marker.DefaultGrid(), 128, newIDSet([]uint16{0x0012}))
	assert.False(t, ok)
	assert.Empty(t, h.IdentityPoints, "a failed decode must not touch the hypothesis")
}

func TestDecodeBackwardDarkImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	h := Hypothesis{Corners: testCorners()}
	_, ok := decodeBackward(&h, img, marker.DefaultGrid(), 128, newIDSet([]uint16{0x0012}))
	assert.False(t, ok, "an all-dark grid decodes to id 0, which is never valid")
}

func TestIDSetClaim(t *testing.T) {
	s := newIDSet([]uint16{1, 2})
	assert.True(t, s.claim(1))
	assert.False(t, s.claim(1))
	assert.False(t, s.claim(3))
	assert.True(t, s.claim(2))
}
