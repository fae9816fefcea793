package ecs

// maxComponentTypes is the number of distinct component types one registry can hold.
// The last bit of every mask is reserved to flag freed entity slots.
const maxComponentTypes = 255

const freedBit = uint8(255)

// componentMask is a 256-bit set of component ids carried by every entity and
// by every query filter.
type componentMask [4]uint64

func (m *componentMask) set(bit uint8) {
	m[bit>>6] |= uint64(1) << (bit & 63)
}

func (m *componentMask) unset(bit uint8) {
	m[bit>>6] &^= uint64(1) << (bit & 63)
}

func (m componentMask) has(bit uint8) bool {
	return m[bit>>6]&(uint64(1)<<(bit&63)) != 0
}

// contains reports whether every bit of sub is also set in m.
func (m componentMask) contains(sub componentMask) bool {
	return m[0]&sub[0] == sub[0] &&
		m[1]&sub[1] == sub[1] &&
		m[2]&sub[2] == sub[2] &&
		m[3]&sub[3] == sub[3]
}

// intersects reports whether m and other share any bit.
func (m componentMask) intersects(other componentMask) bool {
	return m[0]&other[0] != 0 ||
		m[1]&other[1] != 0 ||
		m[2]&other[2] != 0 ||
		m[3]&other[3] != 0
}

func (m componentMask) empty() bool {
	return m[0]|m[1]|m[2]|m[3] == 0
}
