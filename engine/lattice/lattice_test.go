package lattice

import (
	"encoding/json"
	"flag"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hybridhe/switchmin/protocol"
)

// heavy enables the full homomorphic argmin evaluation, which generates a
// long modulus chain and runs the sign circuit for every tournament round.
var heavy = flag.Bool("heavy", false, "run the full homomorphic argmin evaluation")

// testParameterSet is a small ring configuration for fast tests.
func testParameterSet() protocol.ParameterSet {
	return protocol.ParameterSet{
		RingDim:      64,
		BatchSize:    4,
		BaseDepth:    2,
		ScaleModSize: 40,
		FirstModSize: 50,
		CompLogQ:     25,
		OneHot:       true,
	}
}

func TestParametersLiteralShape(t *testing.T) {
	spec := testParameterSet()
	literal := parametersLiteral(spec)

	require.Equal(t, 6, literal.LogN)
	require.Equal(t, spec.ScaleModSize, literal.LogDefaultScale)

	// One modulus per level plus the first modulus; the chain must cover the
	// base depth and every tournament round without a refresh.
	rounds := 2
	wantLevels := spec.MultDepth() + rounds*(compositeDepth(signCoefficients())+roundOverhead)
	require.Len(t, literal.LogQ, wantLevels+1)
	require.Equal(t, spec.FirstModSize, literal.LogQ[0])
	for _, logQi := range literal.LogQ[1:] {
		require.Equal(t, spec.ScaleModSize, logQi)
	}
}

func TestRotationSteps(t *testing.T) {
	require.Equal(t, []int{1, -1, 2, -2, 4, -4}, rotationSteps(8))
	require.Equal(t, []int{1, -1}, rotationSteps(2))
}

func TestPackUnpackPayload(t *testing.T) {
	blobs := [][]byte{[]byte("first key"), []byte(""), []byte("third key")}

	got, err := unpackPayload(packPayload(blobs...))
	require.NoError(t, err)
	require.Equal(t, blobs, got)
}

func TestUnpackPayloadRejectsDamage(t *testing.T) {
	payload := packPayload([]byte("one"), []byte("two"))

	for name, blob := range map[string][]byte{
		"empty":            {},
		"truncated header": payload[:3],
		"truncated blob":   payload[:len(payload)-1],
		"trailing bytes":   append(append([]byte(nil), payload...), 0x00),
	} {
		_, err := unpackPayload(blob)
		require.ErrorIs(t, err, protocol.ErrArtifactCorrupt, name)
	}
}

func TestComparisonConfigRoundTrip(t *testing.T) {
	spec := testParameterSet()
	cfg := defaultComparisonConfig(spec)

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var got comparisonConfig
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, *cfg, got)
	require.Equal(t, spec.CompLogQ, got.CompLogQ)
	require.NotEmpty(t, got.SignPolynomial)
}

func TestSessionOrdering(t *testing.T) {
	s := New()

	require.ErrorIs(t, s.GenKeys([]uint32{1 << 4}), protocol.ErrEvaluation, "keys before context")
	require.ErrorIs(t, s.EncryptInput([]float64{1}), protocol.ErrEvaluation, "encrypt before keys")
	require.ErrorIs(t, s.Precompute(4), protocol.ErrEvaluation, "precompute before load")
	require.ErrorIs(t, s.EvalArgmin(4, 4, 0), protocol.ErrEvaluation, "argmin before precompute")
	require.ErrorIs(t, s.Import(protocol.KindPublicKey, 0, nil), protocol.ErrEvaluation, "import before context")

	require.NoError(t, s.Init(testParameterSet()))
	require.ErrorIs(t, s.Init(testParameterSet()), protocol.ErrEvaluation, "double init")
}

func TestContextRoundTrip(t *testing.T) {
	pub := New()
	require.NoError(t, pub.Init(testParameterSet()))

	payload, err := pub.Export(protocol.KindContext, 0)
	require.NoError(t, err)

	worker := New()
	require.NoError(t, worker.Import(protocol.KindContext, 0, payload))
	require.ErrorIs(t, worker.Import(protocol.KindContext, 0, payload), protocol.ErrEvaluation, "double context")

	roundTripped, err := worker.params.MarshalBinary()
	require.NoError(t, err)
	original, err := pub.params.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, original, roundTripped)
}

func TestImportRejectsGarbage(t *testing.T) {
	s := New()
	require.ErrorIs(t, s.Import(protocol.KindContext, 0, []byte("junk")), protocol.ErrArtifactCorrupt)

	require.NoError(t, s.Init(testParameterSet()))
	require.ErrorIs(t, s.Import(protocol.KindMultKey, 0, []byte("junk")), protocol.ErrArtifactCorrupt)
	require.ErrorIs(t, s.Import(protocol.KindRotationKey, 0, []byte("j")), protocol.ErrArtifactCorrupt)
	require.ErrorIs(t, s.Import(protocol.KindComparisonContext, 0, []byte("{}")), protocol.ErrArtifactCorrupt)
}

func TestArgminEndToEnd(t *testing.T) {
	if !*heavy {
		t.Skip("pass -heavy to run the full homomorphic evaluation")
	}

	spec := testParameterSet()
	input := []float64{-1.125, -1.12, 5, 6}

	store := protocol.NewMemStore()
	res, err := protocol.Run(protocol.RunConfig{
		Params:              spec,
		BaseGs:              []uint32{1 << 4},
		Input:               input,
		Store:               store,
		NewPublisherSession: func() protocol.Session { return New() },
		NewWorkerSession:    func() protocol.Session { return New() },
	})
	require.NoError(t, err)
	require.Equal(t, protocol.PhaseVerified, res.Phase)
	require.Equal(t, 0, res.Report.Position)
}
