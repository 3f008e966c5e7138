package lattice

import (
	"fmt"
	"math/bits"

	"github.com/tuneinsight/lattigo/v6/circuits/ckks/bootstrapping"
	"github.com/tuneinsight/lattigo/v6/circuits/ckks/comparison"
	"github.com/tuneinsight/lattigo/v6/circuits/ckks/minimax"
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"github.com/hybridhe/switchmin/protocol"
)

// precomputation fixes the cross-scheme constants before the evaluation:
// the down-scaling applied to differences before the sign circuit, the
// fixed-point quantum of the comparison modulus and the tie bias derived
// from it.
type precomputation struct {
	scaleSign float64
	quantum   float64
	tieBias   float64
	signPoly  minimax.Polynomial
}

// Precompute derives the comparison constants from the loaded comparison
// context. The fixed-point quantum is one step of the plaintext modulus
// remaining after the noise margin, q / (2*beta); exact ties resolve within
// half a quantum.
func (s *Session) Precompute(numValues int) error {
	if !s.inited || s.comp == nil {
		return fmt.Errorf("%w: precompute before the comparison context is loaded", protocol.ErrEvaluation)
	}
	if s.activeBundle() == nil {
		return fmt.Errorf("%w: precompute before the bootstrapping bundle is loaded", protocol.ErrEvaluation)
	}
	if s.pre != nil {
		return fmt.Errorf("%w: precompute runs exactly once per loaded context", protocol.ErrEvaluation)
	}
	if numValues < 1 || numValues > s.params.MaxSlots() {
		return fmt.Errorf("%w: precompute for %d values, slot capacity is %d", protocol.ErrEvaluation, numValues, s.params.MaxSlots())
	}

	pLWE := (uint64(1) << uint(s.comp.CompLogQ)) / uint64(2*s.comp.Beta)
	quantum := 1 / float64(pLWE)
	s.pre = &precomputation{
		scaleSign: s.comp.ScaleSign,
		quantum:   quantum,
		tieBias:   quantum / 2,
		signPoly:  minimax.NewPolynomial(s.comp.SignPolynomial),
	}
	return nil
}

// EvalArgmin runs the halving tournament on the loaded input ciphertext.
// Each round pairs slot i with slot i+L/2, decides the pair under the
// comparison secret and folds the decision into both the running minimum
// and the position indicator. The result ciphertext holds the indicator in
// the first numOutputs slots.
func (s *Session) EvalArgmin(numValues, numOutputs, firstIndex int) error {
	if s.pre == nil {
		return fmt.Errorf("%w: argmin before the comparison precompute", protocol.ErrEvaluation)
	}
	if s.swkToComp == nil || s.swkFromComp == nil {
		return fmt.Errorf("%w: argmin requires the scheme-switch key", protocol.ErrEvaluation)
	}
	if s.rlk == nil || len(s.gks) == 0 {
		return fmt.Errorf("%w: argmin requires the evaluation keys", protocol.ErrEvaluation)
	}
	if s.inputCt == nil {
		return fmt.Errorf("%w: argmin without an input ciphertext", protocol.ErrEvaluation)
	}
	if numValues < 1 || bits.OnesCount(uint(numValues)) != 1 {
		return fmt.Errorf("%w: tournament size %d must be a power of two", protocol.ErrEvaluation, numValues)
	}
	if numOutputs < 1 || numOutputs > numValues {
		return fmt.Errorf("%w: output count %d outside [1, %d]", protocol.ErrEvaluation, numOutputs, numValues)
	}
	if firstIndex < 0 || firstIndex+numValues > s.params.MaxSlots() {
		return fmt.Errorf("%w: window [%d, %d) outside the slot capacity %d",
			protocol.ErrEvaluation, firstIndex, firstIndex+numValues, s.params.MaxSlots())
	}

	bundle := s.activeBundle()
	if bundle == nil {
		return fmt.Errorf("%w: argmin requires a complete bootstrapping bundle", protocol.ErrEvaluation)
	}

	eval := ckks.NewEvaluator(s.params, rlwe.NewMemEvaluationKeySet(s.rlk, s.gks...))
	evalComp := ckks.NewEvaluator(s.params, rlwe.NewMemEvaluationKeySet(bundle.rlk, bundle.gks...))
	cmp := comparison.NewEvaluator(s.params, minimax.NewEvaluator(s.params, evalComp, noBootstrapper{s.params}), s.pre.signPoly)

	m := s.inputCt.CopyNew()
	if firstIndex > 0 {
		if err := s.rotateBy(eval, m, firstIndex); err != nil {
			return err
		}
	}

	var e *rlwe.Ciphertext
	for L := numValues; L > 1; L >>= 1 {
		half := L / 2

		rot, err := eval.RotateNew(m, half)
		if err != nil {
			return evalErr("pair rotation", err)
		}
		d, err := eval.SubNew(m, rot)
		if err != nil {
			return evalErr("pair difference", err)
		}

		// Map the difference into the sign interval and bias exact ties
		// toward the earlier slot.
		if err := eval.Mul(d, 1/s.pre.scaleSign, d); err != nil {
			return evalErr("difference scaling", err)
		}
		if err := eval.Rescale(d, d); err != nil {
			return evalErr("difference scaling", err)
		}
		if err := eval.Add(d, -s.pre.tieBias/s.pre.scaleSign, d); err != nil {
			return evalErr("tie bias", err)
		}

		// The ordering decision happens under the comparison secret.
		if err := eval.ApplyEvaluationKey(d, s.swkToComp, d); err != nil {
			return evalErr("switch to comparison", err)
		}
		c, err := cmp.Step(d)
		if err != nil {
			return evalErr("sign evaluation", err)
		}
		if err := eval.ApplyEvaluationKey(c, s.swkFromComp, c); err != nil {
			return evalErr("switch from comparison", err)
		}

		// m <- m + c*(rot - m): the pairwise minimum, valid in the first
		// half slots of the window.
		diff, err := eval.SubNew(rot, m)
		if err != nil {
			return evalErr("minimum update", err)
		}
		if err := eval.MulRelin(diff, c, diff); err != nil {
			return evalErr("minimum update", err)
		}
		if err := eval.Rescale(diff, diff); err != nil {
			return evalErr("minimum update", err)
		}
		if err := eval.Add(m, diff, m); err != nil {
			return evalErr("minimum update", err)
		}

		sel, err := s.selector(eval, c, half, L, numValues)
		if err != nil {
			return err
		}
		if e == nil {
			e = sel
		} else {
			if err := eval.MulRelin(e, sel, e); err != nil {
				return evalErr("indicator fold", err)
			}
			if err := eval.Rescale(e, e); err != nil {
				return evalErr("indicator fold", err)
			}
		}
	}

	if e == nil {
		// A single value is its own minimum.
		var err error
		if e, err = s.encryptIndicatorOne(); err != nil {
			return err
		}
	} else if numOutputs < numValues {
		buf := s.pool.get()
		defer s.pool.put(buf)
		for i := 0; i < numOutputs; i++ {
			buf[i] = 1
		}
		if err := eval.Mul(e, buf, e); err != nil {
			return evalErr("output masking", err)
		}
		if err := eval.Rescale(e, e); err != nil {
			return evalErr("output masking", err)
		}
	}

	s.resultCt = e
	return nil
}

// selector builds the survival mask of one tournament round: 1-c in the low
// half of the window, c shifted into the high half, replicated across the
// original positions with period L.
func (s *Session) selector(eval *ckks.Evaluator, c *rlwe.Ciphertext, half, L, numValues int) (*rlwe.Ciphertext, error) {
	maskLow := s.pool.get()
	defer s.pool.put(maskLow)
	for i := 0; i < half; i++ {
		maskLow[i] = 1
	}

	cLow, err := eval.MulNew(c, maskLow)
	if err != nil {
		return nil, evalErr("selector mask", err)
	}
	if err := eval.Rescale(cLow, cLow); err != nil {
		return nil, evalErr("selector mask", err)
	}

	selHigh, err := eval.RotateNew(cLow, -half)
	if err != nil {
		return nil, evalErr("selector placement", err)
	}
	sel, err := eval.SubNew(selHigh, cLow)
	if err != nil {
		return nil, evalErr("selector placement", err)
	}
	if err := eval.Add(sel, maskLow, sel); err != nil {
		return nil, evalErr("selector placement", err)
	}

	for shift := L; shift < numValues; shift <<= 1 {
		rot, err := eval.RotateNew(sel, -shift)
		if err != nil {
			return nil, evalErr("selector replication", err)
		}
		if err := eval.Add(sel, rot, sel); err != nil {
			return nil, evalErr("selector replication", err)
		}
	}
	return sel, nil
}

// rotateBy composes power-of-two rotations to shift the window start into
// slot zero.
func (s *Session) rotateBy(eval *ckks.Evaluator, ct *rlwe.Ciphertext, k int) error {
	for b := 0; k>>b != 0; b++ {
		if k>>b&1 == 0 {
			continue
		}
		if err := eval.Rotate(ct, 1<<b, ct); err != nil {
			return evalErr("window rotation", err)
		}
	}
	return nil
}

func (s *Session) encryptIndicatorOne() (*rlwe.Ciphertext, error) {
	if s.encryptor == nil {
		return nil, fmt.Errorf("%w: argmin requires the public key", protocol.ErrEvaluation)
	}
	buf := s.pool.get()
	defer s.pool.put(buf)
	buf[0] = 1

	pt := ckks.NewPlaintext(s.params, s.params.MaxLevel())
	if err := s.encoder.Encode(buf, pt); err != nil {
		return nil, evalErr("indicator encoding", err)
	}
	ct, err := s.encryptor.EncryptNew(pt)
	if err != nil {
		return nil, evalErr("indicator encryption", err)
	}
	return ct, nil
}

// activeBundle returns the complete bundle with the smallest baseG.
func (s *Session) activeBundle() *bootstrapBundle {
	var best *bootstrapBundle
	for _, b := range s.bundles {
		if b.rlk == nil || len(b.gks) == 0 {
			continue
		}
		if best == nil || b.baseG < best.baseG {
			best = b
		}
	}
	return best
}

func evalErr(stage string, err error) error {
	return fmt.Errorf("%w: %s: %v", protocol.ErrEvaluation, stage, err)
}

// noBootstrapper satisfies the sign circuit's refresh hook. The modulus
// chain is sized for the full tournament, so a refresh request means the
// level budget was exceeded and the run must fail.
type noBootstrapper struct {
	params ckks.Parameters
}

var _ bootstrapping.Bootstrapper = noBootstrapper{}

func (b noBootstrapper) Bootstrap(ct *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	return nil, fmt.Errorf("%w: ciphertext at level %d requested a refresh outside the level budget", protocol.ErrEvaluation, ct.Level())
}

func (b noBootstrapper) BootstrapMany(cts []rlwe.Ciphertext) ([]rlwe.Ciphertext, error) {
	return nil, fmt.Errorf("%w: %d ciphertexts requested a refresh outside the level budget", protocol.ErrEvaluation, len(cts))
}

func (b noBootstrapper) Depth() int { return 0 }

func (b noBootstrapper) MinimumInputLevel() int { return 0 }

func (b noBootstrapper) OutputLevel() int { return b.params.MaxLevel() }
