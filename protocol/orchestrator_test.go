package protocol_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hybridhe/switchmin/engine/enginetest"
	"github.com/hybridhe/switchmin/protocol"
)

var seedCounter int64

func testRunConfig(store protocol.Store, input []float64) protocol.RunConfig {
	return protocol.RunConfig{
		Params:              protocol.DefaultParameterSet(),
		Input:               input,
		Store:               store,
		NewPublisherSession: func() protocol.Session { return enginetest.New(atomic.AddInt64(&seedCounter, 1)) },
		NewWorkerSession:    func() protocol.Session { return enginetest.New(atomic.AddInt64(&seedCounter, 1)) },
	}
}

func TestRunEndToEnd(t *testing.T) {
	res, err := protocol.Run(testRunConfig(protocol.NewMemStore(), []float64{1, 2, 3, 4}))
	require.NoError(t, err)

	require.Equal(t, protocol.PhaseVerified, res.Phase)
	require.NotNil(t, res.Report)
	require.Equal(t, 0, res.Report.Position)
	require.InDeltaSlice(t, []float64{1, 0, 0, 0}, res.Report.Indicator, 1e-6)
	require.Less(t, res.Report.MaxAbsErr, 1e-6)
}

func TestRunBreaksTiesByFirstOccurrence(t *testing.T) {
	res, err := protocol.Run(testRunConfig(protocol.NewMemStore(), []float64{4, 3, 1, 1}))
	require.NoError(t, err)

	require.Equal(t, protocol.PhaseVerified, res.Phase)
	require.Equal(t, 2, res.Report.Position)
	require.InDeltaSlice(t, []float64{0, 0, 1, 0}, res.Report.Indicator, 1e-6)
}

func TestRunNearBinaryMode(t *testing.T) {
	cfg := testRunConfig(protocol.NewMemStore(), []float64{7, 2, 9, 5})
	cfg.Params.OneHot = false

	res, err := protocol.Run(cfg)
	require.NoError(t, err)
	require.Equal(t, protocol.PhaseVerified, res.Phase)
	require.Equal(t, 1, res.Report.Position)
}

func TestRunRejectsIncompleteConfig(t *testing.T) {
	cfg := testRunConfig(protocol.NewMemStore(), []float64{1, 2})
	cfg.Store = nil

	res, err := protocol.Run(cfg)
	require.ErrorIs(t, err, protocol.ErrConfiguration)
	require.Equal(t, protocol.PhaseInit, res.Phase)
}

func TestRunRejectsOversizedInput(t *testing.T) {
	cfg := testRunConfig(protocol.NewMemStore(), []float64{1, 2, 3, 4, 5})

	res, err := protocol.Run(cfg)
	require.ErrorIs(t, err, protocol.ErrConfiguration)
	require.Equal(t, protocol.PhaseContextReady, res.Phase)
}

// tamperStore wraps a MemStore to inject publication and retrieval faults.
type tamperStore struct {
	*protocol.MemStore
	dropOnPut    string
	corruptOnGet string
}

func (s *tamperStore) Put(name string, payload []byte) error {
	if name == s.dropOnPut {
		return nil
	}
	return s.MemStore.Put(name, payload)
}

func (s *tamperStore) Get(name string) ([]byte, error) {
	blob, err := s.MemStore.Get(name)
	if err != nil {
		return nil, err
	}
	if name == s.corruptOnGet {
		tampered := append([]byte(nil), blob...)
		tampered[len(tampered)/2] ^= 0x40
		return tampered, nil
	}
	return blob, nil
}

func TestRunFailsOnMissingSwitchKey(t *testing.T) {
	store := &tamperStore{MemStore: protocol.NewMemStore(), dropOnPut: protocol.DefaultNames().SwitchKey}
	cfg := testRunConfig(store, []float64{1, 2, 3, 4})

	res, err := protocol.Run(cfg)
	require.ErrorIs(t, err, protocol.ErrArtifactMissing)
	require.Equal(t, protocol.PhasePublished, res.Phase)
}

func TestRunFailsOnCorruptArtifact(t *testing.T) {
	store := &tamperStore{MemStore: protocol.NewMemStore(), corruptOnGet: protocol.DefaultNames().InitialCiphertext}
	cfg := testRunConfig(store, []float64{1, 2, 3, 4})

	res, err := protocol.Run(cfg)
	require.ErrorIs(t, err, protocol.ErrArtifactCorrupt)
	require.Equal(t, protocol.PhasePublished, res.Phase)
}

func TestRunsAreIndependentlyRandomized(t *testing.T) {
	input := []float64{3, 1, 4, 1}

	storeA, storeB := protocol.NewMemStore(), protocol.NewMemStore()
	_, err := protocol.Run(testRunConfig(storeA, input))
	require.NoError(t, err)
	_, err = protocol.Run(testRunConfig(storeB, input))
	require.NoError(t, err)

	name := protocol.DefaultNames().InitialCiphertext
	blobA, err := storeA.Get(name)
	require.NoError(t, err)
	blobB, err := storeB.Get(name)
	require.NoError(t, err)

	// Same plaintext, fresh keys and fresh encryption randomness: the
	// published ciphertexts must not be byte-identical.
	require.NotEqual(t, blobA, blobB)
}

func TestPublisherWorkerAgainstFileStore(t *testing.T) {
	store, err := protocol.NewFileStore(t.TempDir())
	require.NoError(t, err)

	res, runErr := protocol.Run(testRunConfig(store, []float64{0.5, 0.25, 0.75, 1}))
	require.NoError(t, runErr)
	require.Equal(t, protocol.PhaseVerified, res.Phase)
	require.Equal(t, 1, res.Report.Position)
}
