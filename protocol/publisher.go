package protocol

import (
	"fmt"

	"github.com/hybridhe/switchmin/logging"
)

// Publisher is the data-owner role: it generates the context and key
// material, encrypts the input vector and publishes every artifact the
// worker needs. The secret key never leaves its session.
type Publisher struct {
	Session Session
	Store   Store
	Names   Names
	Log     *logging.Logger

	keys *KeyMaterial
}

// InitContext builds the scheme contexts from the parameter set.
func (p *Publisher) InitContext(params ParameterSet) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := p.Session.Init(params); err != nil {
		return fmt.Errorf("context generation: %w", err)
	}
	p.Log.Printf("crypto context generated (ring=%d, depth=%d)", params.RingDim, params.MultDepth())
	return nil
}

// GenerateAndEncrypt produces the key material for the given baseG values and
// encrypts the input vector under the fresh public key.
func (p *Publisher) GenerateAndEncrypt(params ParameterSet, baseGs []uint32, input []float64) error {
	keys, err := GenerateKeyMaterial(p.Session, params, baseGs)
	if err != nil {
		return err
	}
	p.Log.Printf("key pair, evaluation keys and %d bootstrap bundle(s) generated", len(baseGs))

	if len(input) == 0 || len(input) > params.BatchSize {
		return fmt.Errorf("%w: input vector length %d must be in [1, %d]", ErrConfiguration, len(input), params.BatchSize)
	}
	if err := p.Session.EncryptInput(input); err != nil {
		return fmt.Errorf("input encryption: %w", err)
	}
	keys.VectorSize = len(input)
	p.keys = keys
	p.Log.Printf("input vector of %d values encrypted", len(input))
	return nil
}

// catalog returns the publish order of the worker-facing artifacts. The
// active bundle is published twice, once under the plain names and once under
// its baseG-indexed names, so the worker can load either by default or by
// explicit base.
func (p *Publisher) catalog() []catalogEntry {
	entries := []catalogEntry{
		{KindContext, 0, p.Names.Context},
		{KindPublicKey, 0, p.Names.PublicKey},
		{KindMultKey, 0, p.Names.MultKey},
		{KindRotationKey, 0, p.Names.RotationKey},
		{KindSwitchKey, 0, p.Names.SwitchKey},
		{KindComparisonContext, 0, p.Names.ComparisonContext},
		{KindRefreshKey, p.keys.BaseGs[0], p.Names.RefreshKey},
		{KindKeySwitchKey, p.keys.BaseGs[0], p.Names.KeySwitchKey},
	}
	for _, g := range p.keys.BaseGs {
		entries = append(entries,
			catalogEntry{KindRefreshKey, g, p.Names.BundleRefreshKey(g)},
			catalogEntry{KindKeySwitchKey, g, p.Names.BundleKeySwitchKey(g)},
		)
	}
	return append(entries, catalogEntry{KindInitialCiphertext, 0, p.Names.InitialCiphertext})
}

type catalogEntry struct {
	kind  ArtifactKind
	baseG uint32
	name  string
}

// Publish writes the complete artifact catalog to the store. Any single
// failure aborts the run; there is no partial-publish recovery.
func (p *Publisher) Publish() error {
	if p.keys == nil {
		return fmt.Errorf("%w: publish before key generation", ErrEvaluation)
	}
	for _, e := range p.catalog() {
		payload, err := p.Session.Export(e.kind, e.baseG)
		if err != nil {
			return fmt.Errorf("export %s: %w", e.name, err)
		}
		if err := p.Store.Put(e.name, SealArtifact(e.kind, e.baseG, payload)); err != nil {
			return fmt.Errorf("publish %s: %w", e.name, err)
		}
		p.Log.Printf("published %s (%d bytes)", e.name, len(payload))
	}
	return nil
}

// KeyMaterial returns the generation result record, or nil before
// GenerateAndEncrypt.
func (p *Publisher) KeyMaterial() *KeyMaterial {
	return p.keys
}
