package ecs

// entityPool allocates generational entity ids and recycles freed indices.
// A destroyed index is reused with its generation bumped, so ids handed out
// before the destroy never compare alive again.
type entityPool struct {
	generations []uint32
	masks       []componentMask
	freeList    []uint32
	live        int
}

func newEntityPool() *entityPool {
	return &entityPool{
		generations: make([]uint32, 0, 1024),
		masks:       make([]componentMask, 0, 1024),
		freeList:    make([]uint32, 0, 256),
	}
}

func (p *entityPool) create() EntityId {
	p.live++
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		p.masks[idx] = componentMask{}
		return NewEntityId(p.generations[idx], idx)
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 1)
	p.masks = append(p.masks, componentMask{})
	return NewEntityId(1, idx)
}

func (p *entityPool) alive(id EntityId) bool {
	idx := id.Index()
	if int(idx) >= len(p.generations) {
		return false
	}
	return p.generations[idx] == id.Generation() && !p.freed(idx)
}

func (p *entityPool) freed(idx uint32) bool {
	return p.masks[idx].has(freedBit)
}

func (p *entityPool) destroy(id EntityId) bool {
	if !p.alive(id) {
		return false
	}
	idx := id.Index()
	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1
	}
	p.masks[idx] = componentMask{}
	p.masks[idx].set(freedBit)
	p.freeList = append(p.freeList, idx)
	p.live--
	return true
}

// mask returns the component mask of a live entity, or nil.
func (p *entityPool) mask(id EntityId) *componentMask {
	if !p.alive(id) {
		return nil
	}
	return &p.masks[id.Index()]
}

// idAt returns the current id for an index and whether it is live.
func (p *entityPool) idAt(idx uint32) (EntityId, bool) {
	if int(idx) >= len(p.generations) || p.freed(idx) {
		return 0, false
	}
	return NewEntityId(p.generations[idx], idx), true
}

func (p *entityPool) capacity() int {
	return len(p.generations)
}
