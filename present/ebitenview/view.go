// Package ebitenview is the windowed presenter. It draws the demo's circles
// with ebiten, feeds the keyboard into the App and optionally hosts the ImGui
// debug overlay.
package ebitenview

import (
	"context"
	"errors"
	"image/color"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"go.uber.org/zap"

	"github.com/plus3/hearth/app"
	"github.com/plus3/hearth/demo"
	"github.com/plus3/hearth/ecs"
	"github.com/plus3/hearth/ecs/debugui"
	debugui_ebiten "github.com/plus3/hearth/ecs/debugui/ebiten"
)

const greetingLines = 6

var background = color.RGBA{245, 245, 240, 255}

type cameraRow struct {
	Position *demo.Position `ecs:"read"`
	Camera   *demo.Camera2D `ecs:"read"`
}

type circleRow struct {
	Position *demo.Position `ecs:"read"`
	Circle   *demo.Circle   `ecs:"read"`
	Color    *demo.Color    `ecs:"read"`
}

type sprite struct {
	X, Y, Radius float32
	Color        color.RGBA
}

// camera maps world units, y up, onto screen pixels with the camera position at
// the center of the screen.
type camera struct {
	X, Y, Zoom float64
}

func (c camera) project(x, y float64, width, height int) (float32, float32) {
	sx := float64(width)/2 + (x-c.X)*c.Zoom
	sy := float64(height)/2 - (y-c.Y)*c.Zoom
	return float32(sx), float32(sy)
}

func toRGBA(c demo.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// View implements ebiten.Game and app.Presenter. The App ticks once per
// ebiten update at the configured tick rate.
type View struct {
	app      *app.App
	window   app.WindowConfig
	rate     time.Duration
	log      *zap.Logger
	keyboard *Keyboard

	imgui   *debugui_ebiten.ImguiBackend
	overlay *debugui.Overlay

	cameras *ecs.View[cameraRow]
	circles *ecs.View[circleRow]

	ctx       context.Context
	sprites   []sprite
	greetings []string
}

// New attaches a View to a as its presenter and input source. With
// window.debug_ui set, the debug windows are spawned into a's storage.
func New(a *app.App) *View {
	cfg := a.Config()
	v := &View{
		app:      a,
		window:   cfg.Window,
		rate:     cfg.App.TickRate,
		log:      a.Logger().Named("ebitenview"),
		keyboard: NewKeyboard(),
		cameras:  ecs.NewView[cameraRow](a.Storage()),
		circles:  ecs.NewView[circleRow](a.Storage()),
		ctx:      context.Background(),
	}

	if cfg.Window.DebugUI {
		backend := debugui_ebiten.NewImguiBackend(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)
		v.imgui = &backend

		debugui.RegisterDebugUIComponents(a.Registry())
		debugui.SpawnDebugUI(a.Storage())
		inputState := ecs.NewSingleton(a.Storage(), debugui.ImguiInputState{})
		v.keyboard.Blocked = func() bool {
			state := inputState.Get()
			return state != nil && state.WantCaptureKeyboard
		}
		a.AddSystem(&debugui.ImguiSystem{})
		v.overlay = debugui.NewOverlay(a.Storage(), a.Scheduler())
	}

	a.SetInputSource(v.keyboard)
	a.AddPresenter(v)
	return v
}

// Run opens the window and blocks until it is closed, ctx is cancelled, Exit
// is requested or the tick limit is reached.
func (v *View) Run(ctx context.Context) error {
	v.ctx = ctx
	ebiten.SetWindowSize(v.window.Width, v.window.Height)
	ebiten.SetWindowTitle(v.window.Title)
	ebiten.SetTPS(max(1, int(time.Second/v.rate)))

	v.log.Info("window opened",
		zap.Int("width", v.window.Width),
		zap.Int("height", v.window.Height),
		zap.Bool("debug_ui", v.imgui != nil))

	err := ebiten.RunGame(v)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// Present snapshots what Draw needs so drawing never touches storage.
func (v *View) Present(storage *ecs.Storage, _ app.Time) error {
	cam := camera{Zoom: 1}
	if row, ok := v.cameras.Single(); ok {
		cam = camera{X: row.Position.X, Y: row.Position.Y, Zoom: row.Camera.Zoom}
	}

	v.sprites = v.sprites[:0]
	for row := range v.circles.Values() {
		x, y := cam.project(row.Position.X, row.Position.Y, v.window.Width, v.window.Height)
		v.sprites = append(v.sprites, sprite{
			X:      x,
			Y:      y,
			Radius: float32(row.Circle.Radius * cam.Zoom),
			Color:  toRGBA(*row.Color),
		})
	}

	if greetings, err := ecs.Resource[demo.GreetLog](storage); err == nil {
		lines := greetings.Lines
		v.greetings = append(v.greetings[:0], lines[max(0, len(lines)-greetingLines):]...)
	}
	return nil
}

func (v *View) Update() error {
	tick := func() error {
		if err := v.app.Tick(v.rate); err != nil {
			return err
		}
		if v.overlay != nil {
			v.overlay.Render()
		}
		return nil
	}

	var err error
	if v.imgui != nil {
		err = v.imgui.Frame(tick)
	} else {
		err = tick()
	}
	if err != nil {
		return err
	}

	switch {
	case v.app.ExitRequested():
		v.log.Info("exit requested", zap.Uint64("ticks", v.app.Ticks()))
		return ebiten.Termination
	case v.ctx.Err() != nil:
		return ebiten.Termination
	}
	if limit := v.app.Config().App.MaxTicks; limit > 0 && v.app.Ticks() >= limit {
		return ebiten.Termination
	}
	return nil
}

func (v *View) Draw(screen *ebiten.Image) {
	screen.Fill(background)
	for _, s := range v.sprites {
		vector.DrawFilledCircle(screen, s.X, s.Y, s.Radius, s.Color, true)
	}
	ebitenutil.DebugPrint(screen, strings.Join(v.greetings, "\n"))

	if v.imgui != nil {
		v.imgui.Draw(screen)
	}
}

func (v *View) Layout(outsideWidth, outsideHeight int) (int, int) {
	if v.imgui != nil {
		v.imgui.Layout(outsideWidth, outsideHeight)
	}
	return v.window.Width, v.window.Height
}
