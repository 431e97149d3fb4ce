package particle

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/ayusman/facecloud/internal/config"
	"github.com/ayusman/facecloud/internal/detector"
	"github.com/ayusman/facecloud/internal/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

func newTestRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestNewSystem(t *testing.T) {
	sys := NewSystem(KindFace, detector.FaceLandmarkCount, 3, config.ThemeColor, newTestRand())

	if got, want := len(sys.Positions()), detector.FaceLandmarkCount*3*3; got != want {
		t.Fatalf("buffer length = %d, want %d", got, want)
	}
	if sys.Len() != detector.FaceLandmarkCount*3 {
		t.Errorf("Len() = %d", sys.Len())
	}
	for i, v := range sys.Positions() {
		if v < -ScatterExtent || v >= ScatterExtent {
			t.Fatalf("scalar %d = %f outside scatter cube", i, v)
		}
	}
}

func TestNewSystem_Deterministic(t *testing.T) {
	a := NewSystem(KindHand, 21, 4, config.ThemeColor, newTestRand())
	b := NewSystem(KindHand, 21, 4, config.ThemeColor, newTestRand())

	for i := range a.Positions() {
		if a.Positions()[i] != b.Positions()[i] {
			t.Fatalf("same seed gave different scatter at %d", i)
		}
	}
}

func TestNewSystem_RaisesCounts(t *testing.T) {
	sys := NewSystem(KindHand, 0, -2, config.ThemeColor, nil)
	if sys.Landmarks() != 1 || sys.Layers() != 1 || len(sys.Positions()) != 3 {
		t.Errorf("expected a single-slot buffer, got %d x %d", sys.Landmarks(), sys.Layers())
	}
}

func TestSystem_Offset(t *testing.T) {
	sys := NewSystem(KindHand, 21, 5, config.ThemeColor, newTestRand())

	tests := []struct {
		landmark, layer, want int
	}{
		{0, 0, 0},
		{0, 4, 12},
		{1, 0, 15},
		{20, 4, (20*5 + 4) * 3},
	}
	for _, tt := range tests {
		if got := sys.Offset(tt.landmark, tt.layer); got != tt.want {
			t.Errorf("Offset(%d, %d) = %d, want %d", tt.landmark, tt.layer, got, tt.want)
		}
	}

	sys.Set(3, 2, [3]float32{1, 2, 3})
	o := sys.Offset(3, 2)
	if p := sys.Positions(); p[o] != 1 || p[o+1] != 2 || p[o+2] != 3 {
		t.Error("Set did not write at Offset")
	}
}

func TestKind(t *testing.T) {
	if KindFace.String() != "face" || KindHand.String() != "hand" {
		t.Error("unexpected kind names")
	}
	if !KindFace.Smiles() || KindHand.Smiles() {
		t.Error("only faces smile")
	}
	if KindFace.Trails() || !KindHand.Trails() {
		t.Error("only hands trail")
	}
}

func TestClampRate(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, MinRate},
		{-1, MinRate},
		{math.NaN(), MinRate},
		{0.3, 0.3},
		{1, 1},
		{1.5, 1},
	}
	for _, tt := range tests {
		if got := ClampRate(tt.in); got != tt.want {
			t.Errorf("ClampRate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLerp_Converges(t *testing.T) {
	const rate = 0.2
	targets := []float64{50, -50, 0.5}

	for _, target := range targets {
		pos := 0.0
		dist := math.Abs(target - pos)
		ticks := 0
		for dist > 1e-9 {
			pos = Lerp(pos, target, rate)
			next := math.Abs(target - pos)
			if next >= dist {
				t.Fatalf("target %v tick %d: distance did not decrease (%g -> %g)", target, ticks, dist, next)
			}
			dist = next
			ticks++
			if ticks > 200 {
				t.Fatalf("target %v: not converged after 200 ticks, distance %g", target, dist)
			}
		}
	}
}

func TestLerp_NeverOvershoots(t *testing.T) {
	for _, rate := range []float64{0.01, 0.3, 0.99, 1} {
		pos := -10.0
		for i := 0; i < 50; i++ {
			pos = Lerp(pos, 10, rate)
			if pos > 10 {
				t.Fatalf("rate %v overshot to %f", rate, pos)
			}
		}
	}
}

func TestIntegrate_FixedPoint(t *testing.T) {
	pos := [3]float32{1.25, -2.5, 3}
	target := r3.Vec{X: 1.25, Y: -2.5, Z: 3}

	for i := 0; i < 10; i++ {
		Integrate(&pos, target, 0.3)
	}
	if pos != [3]float32{1.25, -2.5, 3} {
		t.Errorf("fixed point moved: %v", pos)
	}
}

func TestIntegrate_ClampsRate(t *testing.T) {
	pos := [3]float32{0, 0, 0}
	Integrate(&pos, r3.Vec{X: 1}, 0)
	if pos[0] == 0 {
		t.Error("zero rate should be raised to MinRate, not freeze")
	}

	pos = [3]float32{0, 0, 0}
	Integrate(&pos, r3.Vec{X: 1}, 7)
	if pos[0] != 1 {
		t.Errorf("rate above one should land on target, got %f", pos[0])
	}
}

// quietInput has no noise and no gestures so targets equal the projection.
func quietInput() Input {
	return Input{
		Time:       0,
		Rate:       0.3,
		BaseNoise:  0,
		Volumetric: true,
		Projection: scene.NewProjection(1),
	}
}

func TestField_PinchCaptureIsHardGate(t *testing.T) {
	f := NewField(DefaultTuning())
	radius := f.Tuning.CaptureRadius
	const eps = 1e-6

	tests := []struct {
		name     string
		distance float64
		captured bool
	}{
		{"just inside", radius - eps, true},
		{"just outside", radius + eps, false},
		{"exactly on the radius", radius, false},
		{"far inside", 0.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := quietInput()
			// A centered landmark targets the origin; the pinch sits tt.distance away.
			lm := detector.Point3D{X: 0.5, Y: 0.5}

			in.Gestures.Pinching = true
			in.Gestures.PinchPosition = r3.Vec{X: tt.distance}
			got, _ := f.Target(KindHand, 1, lm, 0, 0, in)

			captured := got.X != 0
			if captured != tt.captured {
				t.Errorf("distance %v: captured = %v, want %v", tt.distance, captured, tt.captured)
			}
			if tt.captured {
				want := tt.distance * f.Tuning.PinchPull
				if math.Abs(got.X-want) > 1e-12 {
					t.Errorf("captured x = %f, want %f", got.X, want)
				}
			}
		})
	}
}

func TestField_PinchIgnoredWhenNotPinching(t *testing.T) {
	f := NewField(DefaultTuning())
	in := quietInput()
	in.Gestures.PinchPosition = r3.Vec{X: 0.1}

	lm := detector.Point3D{X: 0.5, Y: 0.5}
	got, _ := f.Target(KindHand, 1, lm, 0, 0, in)
	if r3.Norm(got) > 1e-12 {
		t.Errorf("stale pinch position should not deform, got %+v", got)
	}
}

func TestField_LayerDepthSymmetric(t *testing.T) {
	f := NewField(DefaultTuning())
	in := quietInput()
	lm := detector.Point3D{X: 0.5, Y: 0.5}

	var zs []float64
	for l := 0; l < 3; l++ {
		target, _ := f.Target(KindFace, 3, lm, 30, l, in)
		zs = append(zs, target.Z)
	}

	if math.Abs(zs[1]) > 1e-12 {
		t.Errorf("middle layer z = %f, want 0", zs[1])
	}
	if math.Abs(zs[0]+zs[2]) > 1e-12 || zs[2] <= zs[1] {
		t.Errorf("outer layers not symmetric: %v", zs)
	}
}

func TestField_VolumetricOffHidesOuterLayers(t *testing.T) {
	f := NewField(DefaultTuning())
	in := quietInput()
	in.Volumetric = false

	sys := NewSystem(KindFace, 5, 3, config.ThemeColor, newTestRand())
	landmarks := make([]detector.Point3D, 5)
	for i := range landmarks {
		landmarks[i] = detector.Point3D{X: 0.5, Y: 0.5}
	}

	f.Apply(sys, landmarks, in)

	for i := 0; i < 5; i++ {
		for l := 1; l < 3; l++ {
			if z := sys.At(i, l)[2]; z != float32(f.Tuning.HiddenDepth) {
				t.Errorf("slot (%d,%d) z = %f, want hidden depth", i, l, z)
			}
		}
	}
	if len(sys.Positions()) != 5*3*3 {
		t.Error("buffer layout changed")
	}
}

func TestField_TrailLayersLag(t *testing.T) {
	f := NewField(DefaultTuning())
	in := quietInput()
	in.Trail = true
	lm := detector.Point3D{X: 0.5, Y: 0.5}

	prev := math.Inf(1)
	for l := 0; l < 10; l++ {
		_, rate := f.Target(KindHand, 10, lm, 0, l, in)
		if l < f.Tuning.TrailCore {
			if rate != in.Rate {
				t.Errorf("core layer %d rate = %f, want %f", l, rate, in.Rate)
			}
		} else if !(rate < prev) {
			t.Errorf("layer %d rate %f should be below layer %d rate %f", l, rate, l-1, prev)
		}
		prev = rate
	}

	// Faces never trail.
	if _, rate := f.Target(KindFace, 10, lm, 0, 9, in); rate != in.Rate {
		t.Errorf("face layer rate = %f, want global rate", rate)
	}
}

func TestField_TrailLagKeepsFallingAtLowRate(t *testing.T) {
	f := NewField(DefaultTuning())
	in := quietInput()
	in.Trail = true
	in.Rate = 0.05
	lm := detector.Point3D{X: 0.5, Y: 0.5}

	prev := math.Inf(1)
	for l := f.Tuning.TrailCore; l < 20; l++ {
		_, rate := f.Target(KindHand, 20, lm, 0, l, in)
		if rate <= MinRate {
			t.Fatalf("layer %d rate %f reached the floor", l, rate)
		}
		if !(rate < prev) {
			t.Errorf("layer %d rate %f should be below the previous ring's %f", l, rate, prev)
		}
		prev = rate
	}
}

func TestField_TrailCoreCenteredInDepth(t *testing.T) {
	tu := DefaultTuning()
	f := NewField(tu)
	in := quietInput()
	in.Trail = true
	lm := detector.Point3D{X: 0.5, Y: 0.5}

	// The core spreads over TrailCore layers, not the whole stack of 12.
	for l := 0; l < tu.TrailCore; l++ {
		target, _ := f.Target(KindHand, 12, lm, 0, l, in)
		want := float64(l-tu.TrailCore/2) * tu.LayerSpacing
		if math.Abs(target.Z-want) > 1e-12 {
			t.Errorf("core layer %d z = %f, want %f", l, target.Z, want)
		}
	}

	// Without trails the full stack spreads as usual.
	in.Trail = false
	target, _ := f.Target(KindHand, 12, lm, 0, 0, in)
	if want := -6 * tu.LayerSpacing; math.Abs(target.Z-want) > 1e-12 {
		t.Errorf("layer 0 z without trail = %f, want %f", target.Z, want)
	}
}

func TestField_NoiseIsDeterministic(t *testing.T) {
	f := NewField(DefaultTuning())
	in := quietInput()
	in.BaseNoise = 0.05
	in.Time = 1.7
	lm := detector.Point3D{X: 0.3, Y: 0.6, Z: -0.1}

	a, _ := f.Target(KindFace, 3, lm, 42, 1, in)
	b, _ := f.Target(KindFace, 3, lm, 42, 1, in)
	if a != b {
		t.Errorf("same inputs gave %+v and %+v", a, b)
	}

	in.Gestures.MouthOpen = true
	c, _ := f.Target(KindFace, 3, lm, 42, 1, in)
	if c == a {
		t.Error("mouth-open noise should change the target")
	}
}

func TestField_SmileLiftsFacesOnly(t *testing.T) {
	f := NewField(DefaultTuning())
	in := quietInput()
	lm := detector.Point3D{X: 0.5, Y: 0.5}

	in.Gestures.Smiling = true
	face, _ := f.Target(KindFace, 1, lm, 100, 0, in)
	hand, _ := f.Target(KindHand, 1, lm, 10, 0, in)

	// Noise while smiling is at most SmileNoise on each axis.
	if face.Y < f.Tuning.SmileLift-f.Tuning.SmileNoise {
		t.Errorf("face y = %f, expected lift", face.Y)
	}
	if math.Abs(hand.Y) > f.Tuning.SmileNoise {
		t.Errorf("hand y = %f, hands should not lift", hand.Y)
	}
}

func TestField_OffsetShiftsXY(t *testing.T) {
	f := NewField(DefaultTuning())
	in := quietInput()
	in.Gestures.Offset = r3.Vec{X: 1, Y: -2, Z: 9}

	got, _ := f.Target(KindHand, 1, detector.Point3D{X: 0.5, Y: 0.5}, 0, 0, in)
	if got != (r3.Vec{X: 1, Y: -2}) {
		t.Errorf("target = %+v, want offset on x and y only", got)
	}
}

func TestField_ApplyConverges(t *testing.T) {
	f := NewField(DefaultTuning())
	in := quietInput()
	in.Rate = 0.2

	sys := NewSystem(KindHand, detector.HandLandmarkCount, 1, config.ThemeColor, newTestRand())
	hand := detector.OpenPalmHand()

	for tick := 0; tick < 200; tick++ {
		f.Apply(sys, hand, in)
	}

	for i, lm := range hand {
		want := in.Projection.Project(lm)
		got := sys.At(i, 0)
		d := r3.Norm(r3.Sub(r3.Vec{X: float64(got[0]), Y: float64(got[1]), Z: float64(got[2])}, want))
		if d > 1e-4 {
			t.Errorf("landmark %d is %g from its target", i, d)
		}
	}
}

func TestField_ApplyShortList(t *testing.T) {
	f := NewField(DefaultTuning())
	sys := NewSystem(KindFace, detector.FaceLandmarkCount, 2, config.ThemeColor, newTestRand())
	before := append([]float32(nil), sys.Positions()...)

	face := detector.NeutralFace()[:100]
	if n := f.Apply(sys, face, quietInput()); n != 100 {
		t.Fatalf("Apply() = %d, want 100", n)
	}

	tail := sys.Offset(100, 0)
	for i := tail; i < len(before); i++ {
		if sys.Positions()[i] != before[i] {
			t.Fatalf("scalar %d beyond the received landmarks changed", i)
		}
	}
}

func TestField_ApplyNoLandmarks(t *testing.T) {
	f := NewField(DefaultTuning())
	sys := NewSystem(KindHand, detector.HandLandmarkCount, 3, config.ThemeColor, newTestRand())
	before := append([]float32(nil), sys.Positions()...)

	if n := f.Apply(sys, nil, quietInput()); n != 0 {
		t.Errorf("Apply(nil) = %d, want 0", n)
	}
	for i := range before {
		if sys.Positions()[i] != before[i] {
			t.Fatal("positions changed without landmarks")
		}
	}
}

func TestField_ApplyIgnoresExtraLandmarks(t *testing.T) {
	f := NewField(DefaultTuning())
	sys := NewSystem(KindHand, 5, 1, config.ThemeColor, newTestRand())

	if n := f.Apply(sys, detector.OpenPalmHand(), quietInput()); n != 5 {
		t.Errorf("Apply() = %d, want clamp to 5", n)
	}
}
