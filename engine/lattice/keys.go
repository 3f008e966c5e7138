package lattice

import (
	"fmt"
	"math/bits"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/utils"

	"github.com/hybridhe/switchmin/protocol"
)

// GenKeys generates the full publisher-side key material:
//
//   - the arithmetic key pair and its evaluation keys (relinearization and
//     the tournament rotations, conjugation included),
//   - a separate comparison secret in the same ring,
//   - the scheme-switch keys bridging the two secrets in both directions,
//   - one comparison-side bootstrapping bundle per requested baseG.
//
// Key generation is one-shot: a session that wants fresh keys starts over
// with Reset and Init.
func (s *Session) GenKeys(baseGs []uint32) error {
	if !s.inited {
		return fmt.Errorf("%w: key generation before context generation", protocol.ErrEvaluation)
	}
	if s.sk != nil {
		return fmt.Errorf("%w: key generation is one-shot per session", protocol.ErrEvaluation)
	}

	s.sk = s.kgen.GenSecretKeyNew()
	s.pk = s.kgen.GenPublicKeyNew(s.sk)
	s.rlk = s.kgen.GenRelinearizationKeyNew(s.sk)

	galEls := s.galoisElements()
	s.gks = s.kgen.GenGaloisKeysNew(galEls, s.sk)

	s.skComp = s.kgen.GenSecretKeyNew()
	s.swkToComp = s.kgen.GenEvaluationKeyNew(s.sk, s.skComp)
	s.swkFromComp = s.kgen.GenEvaluationKeyNew(s.skComp, s.sk)

	for _, baseG := range baseGs {
		if bits.OnesCount32(baseG) != 1 {
			return fmt.Errorf("%w: baseG %d must be a power of two", protocol.ErrConfiguration, baseG)
		}
		evkParams := rlwe.EvaluationKeyParameters{
			BaseTwoDecomposition: utils.Pointy(bits.TrailingZeros32(baseG)),
		}
		s.bundles[baseG] = &bootstrapBundle{
			baseG: baseG,
			rlk:   s.kgen.GenRelinearizationKeyNew(s.skComp, evkParams),
			gks:   s.kgen.GenGaloisKeysNew(galEls, s.skComp, evkParams),
		}
	}

	s.encryptor = rlwe.NewEncryptor(s.params, s.pk)
	s.decryptor = rlwe.NewDecryptor(s.params, s.sk)
	return nil
}

// galoisElements returns the Galois elements of the tournament rotations
// plus complex conjugation, which the sign evaluation uses to clear the
// imaginary part after each polynomial.
func (s *Session) galoisElements() []uint64 {
	steps := rotationSteps(s.spec.BatchSize)
	galEls := make([]uint64, 0, len(steps)+1)
	for _, k := range steps {
		galEls = append(galEls, s.params.GaloisElement(k))
	}
	return append(galEls, s.params.GaloisElementForComplexConjugation())
}
