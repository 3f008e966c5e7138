package protocol

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

// Report is the outcome of result verification: the decrypted indicator, the
// position it marks and precision statistics against the expected vector.
type Report struct {
	Indicator  []float64
	Position   int
	MaxAbsErr  float64
	MeanAbsErr float64
}

// Verifier is the publisher-side check of the returned result: it loads the
// result artifact, decrypts it with the retained secret key and compares it
// against the indicator expected for the original plaintext vector.
type Verifier struct {
	Session Session
	Store   Store
	Names   Names

	// Tolerance bounds the per-slot deviation accepted in one-hot mode.
	// Zero means the default of 0.1.
	Tolerance float64
}

// ExpectedIndicator computes the plaintext argmin indicator of input, ties
// broken by first occurrence.
func ExpectedIndicator(input []float64) []float64 {
	pos := 0
	for i, v := range input {
		if v < input[pos] {
			pos = i
		}
	}
	want := make([]float64, len(input))
	want[pos] = 1
	return want
}

// Verify loads and decrypts the result ciphertext and checks it against the
// original input vector. In one-hot mode the decrypted indicator must match
// the expected one-hot vector within the tolerance; otherwise only a range
// check is performed, since the near-binary mode has no pinned-down output
// contract.
func (v *Verifier) Verify(input []float64, oneHot bool) (*Report, error) {
	blob, err := v.Store.Get(v.Names.ResultCiphertext)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", v.Names.ResultCiphertext, err)
	}
	payload, err := OpenArtifact(KindResultCiphertext, 0, blob)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", v.Names.ResultCiphertext, err)
	}
	if err := v.Session.Import(KindResultCiphertext, 0, payload); err != nil {
		return nil, fmt.Errorf("load %s: %w", v.Names.ResultCiphertext, err)
	}

	indicator, err := v.Session.DecryptResult()
	if err != nil {
		return nil, fmt.Errorf("decrypt result: %w", err)
	}
	if len(indicator) < len(input) {
		return nil, fmt.Errorf("%w: result has %d slots, expected at least %d", ErrEvaluation, len(indicator), len(input))
	}
	indicator = indicator[:len(input)]

	report := &Report{Indicator: indicator, Position: floats.MaxIdx(indicator)}

	want := ExpectedIndicator(input)
	absErrs := make([]float64, len(input))
	for i := range input {
		absErrs[i] = math.Abs(indicator[i] - want[i])
	}
	if report.MaxAbsErr, err = stats.Max(absErrs); err != nil {
		return nil, fmt.Errorf("verification statistics: %w", err)
	}
	if report.MeanAbsErr, err = stats.Mean(absErrs); err != nil {
		return nil, fmt.Errorf("verification statistics: %w", err)
	}

	tol := v.Tolerance
	if tol == 0 {
		tol = 0.1
	}
	if oneHot {
		if !floats.EqualApprox(indicator, want, tol) {
			return report, fmt.Errorf("%w: decrypted indicator %v deviates from expected %v by more than %g",
				ErrEvaluation, indicator, want, tol)
		}
	} else {
		for i, x := range indicator {
			if x < -tol || x > 1+tol {
				return report, fmt.Errorf("%w: near-binary indicator slot %d out of range: %g", ErrEvaluation, i, x)
			}
		}
	}

	return report, nil
}
