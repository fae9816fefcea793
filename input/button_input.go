package input

import "math/bits"

type keySet uint64

func (s keySet) has(k Key) bool { return s&(1<<k) != 0 }

func (s *keySet) set(k Key)   { *s |= 1 << k }
func (s *keySet) unset(k Key) { *s &^= 1 << k }

// ButtonInput is the keyboard state resource. Pressed is level-triggered;
// JustPressed and JustReleased are edges that hold until ClearJust, which the
// App calls at the end of every tick.
type ButtonInput struct {
	pressed      keySet
	justPressed  keySet
	justReleased keySet
}

// Press marks k as held. The just-pressed edge is raised only on a transition.
func (b *ButtonInput) Press(k Key) {
	if !k.Valid() {
		return
	}
	if !b.pressed.has(k) {
		b.justPressed.set(k)
	}
	b.pressed.set(k)
}

func (b *ButtonInput) Release(k Key) {
	if !k.Valid() {
		return
	}
	if b.pressed.has(k) {
		b.justReleased.set(k)
	}
	b.pressed.unset(k)
}

// ReleaseAll releases every held key, raising their just-released edges.
func (b *ButtonInput) ReleaseAll() {
	b.justReleased |= b.pressed
	b.pressed = 0
}

func (b *ButtonInput) Pressed(k Key) bool {
	return k.Valid() && b.pressed.has(k)
}

func (b *ButtonInput) JustPressed(k Key) bool {
	return k.Valid() && b.justPressed.has(k)
}

func (b *ButtonInput) JustReleased(k Key) bool {
	return k.Valid() && b.justReleased.has(k)
}

// AnyJustPressed reports whether any of keys was pressed this tick.
func (b *ButtonInput) AnyJustPressed(keys ...Key) bool {
	for _, k := range keys {
		if b.JustPressed(k) {
			return true
		}
	}
	return false
}

// PressedKeys returns the held keys in declaration order.
func (b *ButtonInput) PressedKeys() []Key {
	keys := make([]Key, 0, bits.OnesCount64(uint64(b.pressed)))
	for k := Key(0); k < keyCount; k++ {
		if b.pressed.has(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (b *ButtonInput) ClearJust() {
	b.justPressed = 0
	b.justReleased = 0
}

// Source feeds key state into the ButtonInput resource once per tick, before
// any Update system runs.
type Source interface {
	Poll(tick uint64, buttons *ButtonInput)
}
