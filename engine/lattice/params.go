package lattice

import (
	"math/bits"

	"github.com/tuneinsight/lattigo/v6/circuits/ckks/comparison"
	"github.com/tuneinsight/lattigo/v6/circuits/ckks/minimax"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"github.com/hybridhe/switchmin/protocol"
)

// comparisonConfig is the serialized comparison-scheme context. It carries
// everything the worker needs to reproduce the publisher's sign evaluation:
// the noise parameter, the pre-comparison down-scaling factor, the modulus
// bit-width and the composite sign polynomial itself.
type comparisonConfig struct {
	Beta           int        `json:"beta"`
	ScaleSign      float64    `json:"scaleSign"`
	CompLogQ       int        `json:"compLogQ"`
	SignPolynomial [][]string `json:"signPolynomial"`
}

// signCoefficients is the composite sign approximation used by default: one
// moderate-precision minimax component sharpened twice. Its precision is
// matched to beta=128, which keeps the level budget per comparison round
// small enough to evaluate the whole tournament without bootstrapping.
func signCoefficients() [][]string {
	return [][]string{
		comparison.DefaultCompositePolynomialForSign[0],
		minimax.CoeffsSignX4Cheby,
		minimax.CoeffsSignX4Cheby,
	}
}

func defaultComparisonConfig(spec protocol.ParameterSet) *comparisonConfig {
	return &comparisonConfig{
		Beta:           128,
		ScaleSign:      512,
		CompLogQ:       spec.CompLogQ,
		SignPolynomial: signCoefficients(),
	}
}

// compositeDepth returns the number of levels one evaluation of the
// composite polynomial consumes.
func compositeDepth(coeffs [][]string) int {
	depth := 0
	for _, p := range minimax.NewPolynomial(coeffs) {
		depth += p.Depth()
	}
	return depth
}

// roundOverhead is the number of levels a tournament round spends outside
// the sign evaluation: difference down-scaling, the minimum update, the
// selector masking and the indicator fold-in.
const roundOverhead = 4

// parametersLiteral sizes the modulus chain for a full argmin tournament
// evaluated level-by-level, with no bootstrapping circuit in the budget.
// The resulting chain is far past any standard security target for the
// default ring dimension; these are workload parameters, not production
// ones.
func parametersLiteral(spec protocol.ParameterSet) ckks.ParametersLiteral {
	rounds := bits.TrailingZeros(uint(spec.BatchSize))
	levels := spec.MultDepth() + rounds*(compositeDepth(signCoefficients())+roundOverhead)

	logQ := make([]int, levels+1)
	logQ[0] = spec.FirstModSize
	for i := 1; i < len(logQ); i++ {
		logQ[i] = spec.ScaleModSize
	}

	return ckks.ParametersLiteral{
		LogN:            bits.TrailingZeros(uint(spec.RingDim)),
		LogQ:            logQ,
		LogP:            []int{60, 60},
		LogDefaultScale: spec.ScaleModSize,
	}
}

// rotationSteps are the slot rotations the tournament needs: the pairing
// rotation of each round and its inverse for selector placement and
// periodic replication.
func rotationSteps(batch int) []int {
	var ks []int
	for k := 1; k < batch; k <<= 1 {
		ks = append(ks, k, -k)
	}
	return ks
}
