package ebitenview

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/plus3/hearth/input"
)

var keyMap = map[input.Key]ebiten.Key{
	input.KeyUp:     ebiten.KeyArrowUp,
	input.KeyDown:   ebiten.KeyArrowDown,
	input.KeyLeft:   ebiten.KeyArrowLeft,
	input.KeyRight:  ebiten.KeyArrowRight,
	input.KeySpace:  ebiten.KeySpace,
	input.KeyEnter:  ebiten.KeyEnter,
	input.KeyEscape: ebiten.KeyEscape,
	input.KeyW:      ebiten.KeyW,
	input.KeyA:      ebiten.KeyA,
	input.KeyS:      ebiten.KeyS,
	input.KeyD:      ebiten.KeyD,
	input.KeyF1:     ebiten.KeyF1,
}

// Keyboard polls the ebiten keyboard. Keys are sampled once per tick, so a
// press and release within one frame is lost.
type Keyboard struct {
	// Blocked suppresses presses while ImGui owns the keyboard.
	Blocked func() bool
	pressed func(ebiten.Key) bool
}

func NewKeyboard() *Keyboard {
	return &Keyboard{pressed: ebiten.IsKeyPressed}
}

func (k *Keyboard) Poll(_ uint64, buttons *input.ButtonInput) {
	blocked := k.Blocked != nil && k.Blocked()
	for _, key := range input.Keys() {
		ek, ok := keyMap[key]
		if ok && !blocked && k.pressed(ek) {
			buttons.Press(key)
		} else {
			buttons.Release(key)
		}
	}
}
