// Package preview draws broadcast frames in a terminal. It is a debugging
// view: an orthographic x/y projection of every cloud with depth shading.
package preview

import (
	"math"

	"github.com/ayusman/facecloud/internal/config"
	"github.com/ayusman/facecloud/internal/scene"
	"github.com/ayusman/facecloud/internal/session"
)

// Glyphs used by the rasterizer.
const (
	ParticleGlyph = '•'
	TargetGlyph   = '◆'
)

// Cell is one lit terminal cell.
type Cell struct {
	X, Y  int
	Rune  rune
	Color config.Color
	Depth float64
}

// View maps scene space onto a character grid.
type View struct {
	Cols, Rows int
	HalfWidth  float64 // scene units from center to the left/right edge
	HalfHeight float64 // scene units from center to the top/bottom edge
}

// NewView fits the scene extent for a viewport into cols x rows.
func NewView(vp session.Viewport, cols, rows int) View {
	p := scene.NewProjection(scene.Aspect(vp.Width, vp.Height))
	return View{
		Cols:       cols,
		Rows:       rows,
		HalfWidth:  p.SpreadX / 2,
		HalfHeight: p.SpreadY / 2,
	}
}

// Cell returns the grid cell for scene point (x, y) and whether it is on screen.
func (v View) Cell(x, y float64) (int, int, bool) {
	if v.Cols <= 0 || v.Rows <= 0 || math.IsNaN(x) || math.IsNaN(y) {
		return 0, 0, false
	}
	u := (x + v.HalfWidth) / (2 * v.HalfWidth)
	w := (v.HalfHeight - y) / (2 * v.HalfHeight)
	if u < 0 || u >= 1 || w < 0 || w >= 1 {
		return 0, 0, false
	}
	return int(u * float64(v.Cols)), int(w * float64(v.Rows)), true
}

// Shade maps depth to a brightness factor in [0.3, 1]; nearer is brighter.
func Shade(z float64) float64 {
	t := (z + scene.DepthScale) / (2 * scene.DepthScale)
	t = math.Max(0, math.Min(1, t))
	return 0.3 + 0.7*t
}

// hiddenDepth marks particles parked out of view when volume is off.
const hiddenDepth = 100

// Rasterize projects every tracked cloud and collectible in f into cells.
// Where particles overlap the nearest one wins. Collectibles are drawn on top.
func Rasterize(f *session.Frame, v View) []Cell {
	if f == nil {
		return nil
	}

	type key struct{ x, y int }
	best := make(map[key]Cell)

	for _, c := range f.Clouds {
		if !c.Tracked {
			continue
		}
		for i := 0; i+2 < len(c.Positions); i += 3 {
			x, y, z := float64(c.Positions[i]), float64(c.Positions[i+1]), float64(c.Positions[i+2])
			if z > hiddenDepth {
				continue
			}
			cx, cy, ok := v.Cell(x, y)
			if !ok {
				continue
			}
			k := key{cx, cy}
			if prev, seen := best[k]; seen && prev.Depth >= z {
				continue
			}
			best[k] = Cell{X: cx, Y: cy, Rune: ParticleGlyph, Color: c.Color, Depth: z}
		}
	}

	cells := make([]Cell, 0, len(best)+len(f.Collectibles))
	for _, c := range best {
		cells = append(cells, c)
	}
	for _, t := range f.Collectibles {
		cx, cy, ok := v.Cell(t.Position[0], t.Position[1])
		if !ok {
			continue
		}
		cells = append(cells, Cell{X: cx, Y: cy, Rune: TargetGlyph, Color: config.GoldColor, Depth: math.Inf(1)})
	}
	return cells
}
