// viewer renders a Cornell-style box with two spheres progressively and
// displays the refining image in a window.
//
// Controls:
//
//	Tab          switch between the VCM and path tracer integrators
//	Left/Right   orbit the camera (animated; accumulation restarts)
//	A            toggle adaptive block refinement
//	B            toggle bloom
//	Up/Down      exposure (animated fade)
//	R            reset accumulation
package main

import (
	"fmt"
	"log"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/phanxgames/lumen"
	"github.com/phanxgames/lumen/geom"
)

const (
	renderW = 320
	renderH = 240
	scale   = 3
)

func buildScene() *geom.Scene {
	scene := geom.NewScene()

	white := &geom.Lambert{Albedo: lumen.Color{R: 0.8, G: 0.8, B: 0.8}}
	red := &geom.Lambert{Albedo: lumen.Color{R: 0.75, G: 0.15, B: 0.15}}
	green := &geom.Lambert{Albedo: lumen.Color{R: 0.15, G: 0.75, B: 0.15}}

	box := lumen.Box{
		Min: lumen.Vec3{X: -1, Y: 0, Z: -1},
		Max: lumen.Vec3{X: 1, Y: 2, Z: 1},
	}
	geom.AddRoom(scene, box, white)

	// tint the side walls
	scene.AddObject(geom.NewQuad(
		lumen.Vec3{X: -0.999, Y: 0, Z: -1},
		lumen.Vec3{Z: 2},
		lumen.Vec3{Y: 2},
	), red)
	scene.AddObject(geom.NewQuad(
		lumen.Vec3{X: 0.999, Y: 0, Z: -1},
		lumen.Vec3{Y: 2},
		lumen.Vec3{Z: 2},
	), green)

	scene.AddObject(&geom.Sphere{
		Center: lumen.Vec3{X: -0.45, Y: 0.35, Z: -0.3},
		Radius: 0.35,
	}, &geom.Mirror{Reflectance: lumen.Color{R: 0.95, G: 0.95, B: 0.95}})
	scene.AddObject(&geom.Sphere{
		Center: lumen.Vec3{X: 0.45, Y: 0.3, Z: 0.3},
		Radius: 0.3,
	}, &geom.Metal{Reflectance: lumen.Color{R: 0.9, G: 0.7, B: 0.3}, Shininess: 120})

	// ceiling panel light
	scene.AddAreaLight(geom.NewQuad(
		lumen.Vec3{X: -0.3, Y: 1.995, Z: -0.3},
		lumen.Vec3{X: 0.6},
		lumen.Vec3{Z: 0.6},
	), lumen.Color{R: 18, G: 17, B: 15})

	if err := scene.Build(lumen.BVHBuildParams{MaxLeafSize: 2}); err != nil {
		log.Fatalf("scene build: %v", err)
	}
	return scene
}

type app struct {
	viewport *lumen.Viewport
	scene    *geom.Scene
	vcm      *lumen.VCM
	tracer   *lumen.PathTracer
	useVCM   bool

	orbit      float32
	orbitTween *gween.Tween
	exposure   float32
	expTween   *gween.Tween
	bloom      bool

	frame *ebiten.Image
}

func newApp() *app {
	a := &app{
		scene:  buildScene(),
		useVCM: true,
		frame:  ebiten.NewImage(renderW, renderH),
	}

	a.vcm = lumen.NewVCM(a.scene)
	a.vcm.InitialMergingRadius = 0.05
	a.vcm.MinMergingRadius = 0.01
	a.vcm.MergingRadiusMultiplier = 0.98

	a.tracer = lumen.NewPathTracer(a.scene)
	a.tracer.UseNextEventEstimation = true

	a.viewport = lumen.NewViewport()
	params := lumen.DefaultRenderingParams()
	params.NumThreads = 4
	params.TileSize = 32
	if err := a.viewport.SetRenderingParams(params); err != nil {
		log.Fatalf("params: %v", err)
	}
	if err := a.viewport.Resize(renderW, renderH); err != nil {
		log.Fatalf("resize: %v", err)
	}
	a.viewport.SetRenderer(a.vcm)

	a.viewport.SetPostprocessParams(a.postprocessParams())

	return a
}

// camera returns the orbiting viewpoint.
func (a *app) camera() *geom.PinholeCamera {
	angle := float64(a.orbit)
	pos := lumen.Vec3{
		X: float32(2.6 * math.Sin(angle)),
		Y: 1.0,
		Z: float32(2.6 * math.Cos(angle)),
	}
	target := lumen.Vec3{Y: 0.9}
	return geom.NewPinholeCamera(pos, target, lumen.Vec3{Y: 1}, math.Pi/3, renderW, renderH)
}

// postprocessParams assembles the display settings from the app toggles.
func (a *app) postprocessParams() lumen.PostprocessParams {
	pp := lumen.DefaultPostprocessParams()
	pp.Tonemapper = lumen.TonemapACES
	pp.Exposure = a.exposure
	if a.bloom {
		pp.BloomFactor = 0.15
	}
	return pp
}

func (a *app) Update() error {
	const dt = 1.0 / 60

	restart := false

	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		a.useVCM = !a.useVCM
		if a.useVCM {
			a.viewport.SetRenderer(a.vcm)
		} else {
			a.viewport.SetRenderer(a.tracer)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		restart = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyA) {
		params := a.viewport.RenderingParams()
		params.Adaptive.Enable = !params.Adaptive.Enable
		params.Adaptive.MaxBlockSize = 64
		params.Adaptive.NumInitialPasses = 8
		if err := a.viewport.SetRenderingParams(params); err != nil {
			return err
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyB) {
		a.bloom = !a.bloom
		a.viewport.SetPostprocessParams(a.postprocessParams())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyLeft) {
		a.orbitTween = gween.New(a.orbit, a.orbit-0.6, 0.8, ease.OutQuad)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyRight) {
		a.orbitTween = gween.New(a.orbit, a.orbit+0.6, 0.8, ease.OutQuad)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyUp) {
		a.expTween = gween.New(a.exposure, a.exposure+1, 0.4, ease.OutQuad)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDown) {
		a.expTween = gween.New(a.exposure, a.exposure-1, 0.4, ease.OutQuad)
	}

	if a.orbitTween != nil {
		v, done := a.orbitTween.Update(dt)
		a.orbit = v
		if done {
			a.orbitTween = nil
		}
		restart = true
	}
	if a.expTween != nil {
		v, done := a.expTween.Update(dt)
		a.exposure = v
		if done {
			a.expTween = nil
		}
		a.viewport.SetPostprocessParams(a.postprocessParams())
	}

	if restart {
		a.viewport.Reset()
	}

	if err := a.viewport.Render(a.camera()); err != nil {
		return err
	}
	a.frame.WritePixels(a.viewport.FrontBuffer())
	return nil
}

func (a *app) Draw(screen *ebiten.Image) {
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(scale, scale)
	op.Filter = ebiten.FilterNearest
	screen.DrawImage(a.frame, &op)

	progress := a.viewport.Progress()
	name := "VCM"
	extra := fmt.Sprintf("photons %d", a.vcm.NumPhotons())
	if !a.useVCM {
		name = "Path Tracer"
		extra = ""
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"%s  pass %d  err %.5f  blocks %d  %s",
		name, progress.PassesFinished, progress.AverageError, progress.ActiveBlocks, extra))
}

func (a *app) Layout(int, int) (int, int) { return renderW * scale, renderH * scale }

func main() {
	ebiten.SetWindowSize(renderW*scale, renderH*scale)
	ebiten.SetWindowTitle("lumen viewer")
	if err := ebiten.RunGame(newApp()); err != nil {
		log.Fatal(err)
	}
}
