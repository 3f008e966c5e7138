package lattice

import "sync"

// slotPool recycles full-width slot buffers for encoding, masking and
// decoding. Buffers are zeroed on get so a mask never inherits stale values.
type slotPool struct {
	pool sync.Pool
}

func newSlotPool(slots int) *slotPool {
	return &slotPool{
		pool: sync.Pool{
			New: func() interface{} {
				return make([]float64, slots)
			},
		},
	}
}

func (p *slotPool) get() []float64 {
	buf := p.pool.Get().([]float64)
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

func (p *slotPool) put(buf []float64) {
	p.pool.Put(buf)
}
