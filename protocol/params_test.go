package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultParameterSetValid(t *testing.T) {
	p := DefaultParameterSet()
	require.NoError(t, p.Validate())
	require.Equal(t, 15, p.MultDepth())
}

func TestMultDepthTracksBatchSize(t *testing.T) {
	p := DefaultParameterSet()
	for batch, want := range map[int]int{2: 14, 4: 15, 8: 16, 64: 19} {
		p.BatchSize = batch
		require.Equal(t, want, p.MultDepth(), "batch %d", batch)
	}
}

func TestValidateRejections(t *testing.T) {
	mutations := map[string]func(*ParameterSet){
		"ring not power of two":     func(p *ParameterSet) { p.RingDim = 3000 },
		"ring too small":            func(p *ParameterSet) { p.RingDim = 8 },
		"batch not power of two":    func(p *ParameterSet) { p.BatchSize = 3 },
		"batch below two":           func(p *ParameterSet) { p.BatchSize = 1 },
		"batch exceeds slots":       func(p *ParameterSet) { p.RingDim = 16; p.BatchSize = 16 },
		"zero depth":                func(p *ParameterSet) { p.BaseDepth = 0 },
		"scale modulus too small":   func(p *ParameterSet) { p.ScaleModSize = 10 },
		"scale modulus too large":   func(p *ParameterSet) { p.ScaleModSize = 61 },
		"first modulus below scale": func(p *ParameterSet) { p.FirstModSize = 40 },
		"first modulus too large":   func(p *ParameterSet) { p.FirstModSize = 62 },
		"comparison modulus low":    func(p *ParameterSet) { p.CompLogQ = 5 },
		"comparison modulus high":   func(p *ParameterSet) { p.CompLogQ = 40 },
	}
	for name, mutate := range mutations {
		p := DefaultParameterSet()
		mutate(&p)
		require.ErrorIs(t, p.Validate(), ErrConfiguration, name)
	}
}

func TestGenerateKeyMaterialRejectsBadBaseGs(t *testing.T) {
	params := DefaultParameterSet()

	for name, baseGs := range map[string][]uint32{
		"empty list":     nil,
		"base below two": {1},
		"duplicate base": {1 << 18, 1 << 18},
	} {
		_, err := GenerateKeyMaterial(nil, params, baseGs)
		require.ErrorIs(t, err, ErrConfiguration, name)
	}
}
