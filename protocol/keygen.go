package protocol

import "fmt"

// KeyMaterial is the result record of the one-shot generation step: the
// parameter set the context was derived from, the baseG values a bundle was
// generated for, and the slot count of the encrypted vector.
type KeyMaterial struct {
	Params     ParameterSet
	BaseGs     []uint32
	VectorSize int
}

// GenerateKeyMaterial drives the engine through context generation and key
// generation for the given baseG list. The generator holds no state of its
// own; everything generated lives in the session.
func GenerateKeyMaterial(s Session, params ParameterSet, baseGs []uint32) (*KeyMaterial, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(baseGs) == 0 {
		return nil, fmt.Errorf("%w: at least one baseG value is required", ErrConfiguration)
	}
	seen := make(map[uint32]bool, len(baseGs))
	for _, g := range baseGs {
		if g < 2 {
			return nil, fmt.Errorf("%w: baseG %d must be >= 2", ErrConfiguration, g)
		}
		if seen[g] {
			return nil, fmt.Errorf("%w: duplicate baseG %d", ErrConfiguration, g)
		}
		seen[g] = true
	}

	if err := s.GenKeys(baseGs); err != nil {
		return nil, fmt.Errorf("key generation: %w", err)
	}

	return &KeyMaterial{
		Params: params,
		BaseGs: append([]uint32(nil), baseGs...),
	}, nil
}
