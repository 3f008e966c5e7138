package protocol

import (
	"fmt"
	"math/bits"
)

// ParameterSet is the tunable cryptographic configuration of a protocol run.
// It is created once at startup and immutable afterwards; both roles derive
// their contexts from the same set.
type ParameterSet struct {
	// RingDim is the polynomial ring dimension of the arithmetic scheme.
	RingDim int

	// BatchSize is the number of plaintext slots used by the input vector.
	BatchSize int

	// BaseDepth is the multiplicative depth before the log2(BatchSize)
	// surcharge of the argmin tournament. The effective depth is MultDepth.
	BaseDepth int

	// ScaleModSize and FirstModSize are the bit sizes of the scaling moduli
	// and of the first modulus of the arithmetic scheme.
	ScaleModSize int
	FirstModSize int

	// CompLogQ is the bit-width of the comparison scheme's ciphertext
	// modulus.
	CompLogQ int

	// OneHot selects the one-hot indicator output. When false the engine
	// returns its near-binary approximation unchanged.
	OneHot bool
}

// DefaultParameterSet is a four-slot batch at depth 13 + log2(batch), with
// 50/60-bit moduli and a 25-bit comparison modulus.
func DefaultParameterSet() ParameterSet {
	return ParameterSet{
		RingDim:      8192,
		BatchSize:    4,
		BaseDepth:    13,
		ScaleModSize: 50,
		FirstModSize: 60,
		CompLogQ:     25,
		OneHot:       true,
	}
}

// MultDepth returns the effective multiplicative depth,
// BaseDepth + log2(BatchSize).
func (p ParameterSet) MultDepth() int {
	return p.BaseDepth + bits.TrailingZeros(uint(p.BatchSize))
}

// Validate checks the parameter combination. Any violation is reported as
// ErrConfiguration; the orchestrator treats it as fatal.
func (p ParameterSet) Validate() error {
	switch {
	case p.RingDim < 16 || bits.OnesCount(uint(p.RingDim)) != 1:
		return fmt.Errorf("%w: ring dimension %d must be a power of two >= 16", ErrConfiguration, p.RingDim)
	case p.BatchSize < 2 || bits.OnesCount(uint(p.BatchSize)) != 1:
		return fmt.Errorf("%w: batch size %d must be a power of two >= 2", ErrConfiguration, p.BatchSize)
	case p.BatchSize > p.RingDim/2:
		return fmt.Errorf("%w: batch size %d exceeds slot capacity %d", ErrConfiguration, p.BatchSize, p.RingDim/2)
	case p.BaseDepth < 1:
		return fmt.Errorf("%w: base depth %d must be positive", ErrConfiguration, p.BaseDepth)
	case p.ScaleModSize < 20 || p.ScaleModSize > 60:
		return fmt.Errorf("%w: scaling modulus size %d outside [20, 60]", ErrConfiguration, p.ScaleModSize)
	case p.FirstModSize <= p.ScaleModSize || p.FirstModSize > 61:
		return fmt.Errorf("%w: first modulus size %d must be in (%d, 61]", ErrConfiguration, p.FirstModSize, p.ScaleModSize)
	case p.CompLogQ < 10 || p.CompLogQ > 30:
		return fmt.Errorf("%w: comparison modulus bit-width %d outside [10, 30]", ErrConfiguration, p.CompLogQ)
	}
	return nil
}

// DefaultBaseGs returns the default bootstrapping decomposition bases: a
// single base derived from a fixed 18-bit shift.
func DefaultBaseGs() []uint32 {
	return []uint32{1 << 18}
}
