package geo

import (
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/inconsolata"
)

const (
	canvasSize   = 1200
	canvasMargin = 80.0
)

// categorical palette for cluster coloring, matplotlib tab20 order.
var clusterPalette = []color.NRGBA{
	{31, 119, 180, 255}, {174, 199, 232, 255}, {255, 127, 14, 255}, {255, 187, 120, 255},
	{44, 160, 44, 255}, {152, 223, 138, 255}, {214, 39, 40, 255}, {255, 152, 150, 255},
	{148, 103, 189, 255}, {197, 176, 213, 255}, {140, 86, 75, 255}, {196, 156, 148, 255},
	{227, 119, 194, 255}, {247, 182, 210, 255}, {127, 127, 127, 255}, {199, 199, 199, 255},
	{188, 189, 34, 255}, {219, 219, 141, 255}, {23, 190, 207, 255}, {158, 218, 229, 255},
}

func clusterColor(id int) color.NRGBA {
	if id < 0 {
		id = -id
	}
	return clusterPalette[id%len(clusterPalette)]
}

// bounds is the lon/lat extent of a point set, padded so points do not sit
// on the canvas edge.
type bounds struct {
	minLon, minLat, maxLon, maxLat float64
}

func computeBounds(points []point) bounds {
	b := bounds{
		minLon: points[0].Lon, maxLon: points[0].Lon,
		minLat: points[0].Lat, maxLat: points[0].Lat,
	}
	for _, p := range points[1:] {
		if p.Lon < b.minLon {
			b.minLon = p.Lon
		}
		if p.Lon > b.maxLon {
			b.maxLon = p.Lon
		}
		if p.Lat < b.minLat {
			b.minLat = p.Lat
		}
		if p.Lat > b.maxLat {
			b.maxLat = p.Lat
		}
	}

	padLon := (b.maxLon - b.minLon) * 0.05
	padLat := (b.maxLat - b.minLat) * 0.05
	if padLon == 0 {
		padLon = 0.001
	}
	if padLat == 0 {
		padLat = 0.001
	}

	b.minLon -= padLon
	b.maxLon += padLon
	b.minLat -= padLat
	b.maxLat += padLat
	return b
}

// project maps a lon/lat point onto canvas pixels (y axis flipped, north up).
func (b bounds) project(p point, width, height float64) (x, y float64) {
	x = canvasMargin + (p.Lon-b.minLon)/(b.maxLon-b.minLon)*(width-2*canvasMargin)
	y = height - canvasMargin - (p.Lat-b.minLat)/(b.maxLat-b.minLat)*(height-2*canvasMargin)
	return x, y
}

// newMapCanvas returns a canvas with the neutral base used beneath all map
// renderings.
func newMapCanvas() *gg.Context {
	dc := gg.NewContext(canvasSize, canvasSize)
	dc.SetRGB255(0xf2, 0xf0, 0xeb)
	dc.Clear()
	dc.SetFontFace(inconsolata.Bold8x16)
	return dc
}

func drawTitle(dc *gg.Context, title string) {
	if title == "" {
		return
	}
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored(title, float64(dc.Width())/2, canvasMargin/2, 0.5, 0.5)
}

// drawNorthArrow draws the arrow-and-N marker in the top right corner.
func drawNorthArrow(dc *gg.Context) {
	x := float64(dc.Width()) - canvasMargin*0.75
	top := canvasMargin * 0.9
	length := 60.0

	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(3)
	dc.DrawLine(x, top+length, x, top+14)
	dc.Stroke()

	dc.MoveTo(x, top)
	dc.LineTo(x-9, top+20)
	dc.LineTo(x+9, top+20)
	dc.ClosePath()
	dc.Fill()

	dc.DrawStringAnchored("N", x, top+length+14, 0.5, 0.5)
}

// drawFrame draws a thin border around the mapped area.
func drawFrame(dc *gg.Context) {
	dc.SetRGBA(0, 0, 0, 0.4)
	dc.SetLineWidth(1.5)
	dc.DrawRectangle(canvasMargin, canvasMargin,
		float64(dc.Width())-2*canvasMargin, float64(dc.Height())-2*canvasMargin)
	dc.Stroke()
}
