package protocol

import (
	"fmt"

	"github.com/hybridhe/switchmin/logging"
)

// Worker is the computing role: it loads the published catalog into a fresh
// session, performs the cross-scheme argmin and returns the encrypted result.
type Worker struct {
	Session Session
	Store   Store
	Names   Names

	// BaseGs are the bootstrap bundle bases the worker expects. They must
	// match the values used at generation time; a mismatch is a correctness
	// error, not a format error.
	BaseGs []uint32

	Log *logging.Logger

	loaded bool
}

// Load clears any stale in-process key material and loads every published
// artifact in catalog order. Any missing or undecodable artifact is fatal.
func (w *Worker) Load() error {
	// Stale caches from a previous run must never shadow freshly loaded
	// material.
	w.Session.Reset()
	w.loaded = false

	entries := []catalogEntry{
		{KindContext, 0, w.Names.Context},
		{KindPublicKey, 0, w.Names.PublicKey},
		{KindMultKey, 0, w.Names.MultKey},
		{KindRotationKey, 0, w.Names.RotationKey},
		{KindSwitchKey, 0, w.Names.SwitchKey},
		{KindComparisonContext, 0, w.Names.ComparisonContext},
	}
	if len(w.BaseGs) > 0 {
		entries = append(entries,
			catalogEntry{KindRefreshKey, w.BaseGs[0], w.Names.RefreshKey},
			catalogEntry{KindKeySwitchKey, w.BaseGs[0], w.Names.KeySwitchKey},
		)
		for _, g := range w.BaseGs {
			entries = append(entries,
				catalogEntry{KindRefreshKey, g, w.Names.BundleRefreshKey(g)},
				catalogEntry{KindKeySwitchKey, g, w.Names.BundleKeySwitchKey(g)},
			)
		}
	}
	entries = append(entries, catalogEntry{KindInitialCiphertext, 0, w.Names.InitialCiphertext})

	for _, e := range entries {
		blob, err := w.Store.Get(e.name)
		if err != nil {
			return fmt.Errorf("load %s: %w", e.name, err)
		}
		payload, err := OpenArtifact(e.kind, e.baseG, blob)
		if err != nil {
			return fmt.Errorf("load %s: %w", e.name, err)
		}
		if err := w.Session.Import(e.kind, e.baseG, payload); err != nil {
			return fmt.Errorf("load %s: %w", e.name, err)
		}
		w.Log.Printf("loaded %s", e.name)
	}

	w.loaded = true
	return nil
}

// Compute runs the comparison precompute followed by the argmin evaluation.
func (w *Worker) Compute(numValues int) error {
	if !w.loaded {
		return fmt.Errorf("%w: compute before load", ErrEvaluation)
	}
	if err := w.Session.Precompute(numValues); err != nil {
		return fmt.Errorf("comparison precompute: %w", err)
	}
	w.Log.Printf("precomputations done")

	if err := w.Session.EvalArgmin(numValues, numValues, 0); err != nil {
		return fmt.Errorf("argmin evaluation: %w", err)
	}
	w.Log.Printf("argmin computation done")
	return nil
}

// Return publishes the result ciphertext under the result artifact name.
func (w *Worker) Return() error {
	payload, err := w.Session.Export(KindResultCiphertext, 0)
	if err != nil {
		return fmt.Errorf("export %s: %w", w.Names.ResultCiphertext, err)
	}
	if err := w.Store.Put(w.Names.ResultCiphertext, SealArtifact(KindResultCiphertext, 0, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", w.Names.ResultCiphertext, err)
	}
	w.Log.Printf("published %s (%d bytes)", w.Names.ResultCiphertext, len(payload))
	return nil
}
