// Package enginetest provides a deterministic, in-memory implementation of
// the protocol's engine session. It honors the full ordering, baseG and key
// identity contracts of the real engine while computing on unprotected slot
// values, which makes protocol behavior testable without lattice arithmetic.
package enginetest

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/rand"

	"github.com/hybridhe/switchmin/protocol"
)

// Session implements protocol.Session. One Session models one role; the
// publisher keeps its generated material, the worker only what it imported.
type Session struct {
	rng *rand.Rand

	inited bool
	params protocol.ParameterSet

	// Generation-side state. keyID is the identity of the generated key
	// pair; it tags every exported object and stands in for the actual ring
	// material.
	keyID   uint64
	bundles map[uint32]bool

	// Loading-side state.
	have      map[protocol.ArtifactKind]bool
	pubKeyID  uint64
	inputCt   *ciphertextBlob
	resultCt  *ciphertextBlob
	precomped bool
	quantum   float64
}

// New returns a Session whose randomness is derived from seed. Distinct
// seeds model distinct engine randomness sources; the same seed still yields
// distinct key pairs across Reset cycles.
func New(seed int64) *Session {
	return &Session{rng: rand.New(rand.NewSource(seed))}
}

type contextBlob struct {
	Params protocol.ParameterSet
}

type keyBlob struct {
	KeyID uint64
	Role  string
}

type comparisonBlob struct {
	CompLogQ int
	Beta     int
}

type bundleBlob struct {
	KeyID uint64
	BaseG uint32
	Part  string
}

type ciphertextBlob struct {
	KeyID  uint64
	Scheme string
	Slots  []float64
}

// beta is the comparison scheme's noise parameter, fixed for the simulated
// engine the way a parameter set fixes it for a lattice backend.
const beta = 128

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(payload []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrArtifactCorrupt, err)
	}
	return nil
}

func (s *Session) Init(params protocol.ParameterSet) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if s.inited {
		return fmt.Errorf("%w: session already initialized", protocol.ErrEvaluation)
	}
	s.inited = true
	s.params = params
	s.have = map[protocol.ArtifactKind]bool{protocol.KindContext: true}
	return nil
}

func (s *Session) GenKeys(baseGs []uint32) error {
	if !s.inited {
		return fmt.Errorf("%w: key generation before context generation", protocol.ErrEvaluation)
	}
	if s.keyID != 0 {
		return fmt.Errorf("%w: key generation is one-shot per session", protocol.ErrEvaluation)
	}
	s.keyID = s.rng.Uint64() | 1
	s.bundles = make(map[uint32]bool, len(baseGs))
	for _, g := range baseGs {
		s.bundles[g] = true
	}
	return nil
}

func (s *Session) EncryptInput(values []float64) error {
	if s.keyID == 0 {
		return fmt.Errorf("%w: encryption before key generation", protocol.ErrEvaluation)
	}
	slots := make([]float64, len(values))
	for i, v := range values {
		// Fresh encryption noise: negligible, but never bit-identical.
		slots[i] = v + (s.rng.Float64()-0.5)*1e-9
	}
	s.inputCt = &ciphertextBlob{KeyID: s.keyID, Scheme: "arithmetic", Slots: slots}
	return nil
}

func (s *Session) Export(kind protocol.ArtifactKind, baseG uint32) ([]byte, error) {
	if kind == protocol.KindResultCiphertext {
		if s.resultCt == nil {
			return nil, fmt.Errorf("%w: no result ciphertext to export", protocol.ErrEvaluation)
		}
		return encode(s.resultCt)
	}

	if s.keyID == 0 {
		return nil, fmt.Errorf("%w: export of %s before key generation", protocol.ErrEvaluation, kind)
	}
	switch kind {
	case protocol.KindContext:
		return encode(contextBlob{Params: s.params})
	case protocol.KindPublicKey, protocol.KindMultKey, protocol.KindRotationKey, protocol.KindSwitchKey:
		return encode(keyBlob{KeyID: s.keyID, Role: kind.String()})
	case protocol.KindComparisonContext:
		return encode(comparisonBlob{CompLogQ: s.params.CompLogQ, Beta: beta})
	case protocol.KindRefreshKey, protocol.KindKeySwitchKey:
		if !s.bundles[baseG] {
			return nil, fmt.Errorf("%w: no bundle generated for baseG=%d", protocol.ErrEvaluation, baseG)
		}
		return encode(bundleBlob{KeyID: s.keyID, BaseG: baseG, Part: kind.String()})
	case protocol.KindInitialCiphertext:
		if s.inputCt == nil {
			return nil, fmt.Errorf("%w: no input ciphertext to export", protocol.ErrEvaluation)
		}
		return encode(s.inputCt)
	}
	return nil, fmt.Errorf("%w: cannot export %s", protocol.ErrEvaluation, kind)
}

func (s *Session) Import(kind protocol.ArtifactKind, baseG uint32, payload []byte) error {
	if kind == protocol.KindContext {
		if s.inited {
			return fmt.Errorf("%w: context already present", protocol.ErrEvaluation)
		}
		var blob contextBlob
		if err := decode(payload, &blob); err != nil {
			return err
		}
		if err := blob.Params.Validate(); err != nil {
			return fmt.Errorf("%w: loaded context: %v", protocol.ErrArtifactCorrupt, err)
		}
		s.inited = true
		s.params = blob.Params
		s.have = map[protocol.ArtifactKind]bool{protocol.KindContext: true}
		return nil
	}

	if !s.inited {
		return fmt.Errorf("%w: import of %s before the context is loaded", protocol.ErrEvaluation, kind)
	}

	switch kind {
	case protocol.KindPublicKey, protocol.KindMultKey, protocol.KindRotationKey, protocol.KindSwitchKey:
		var blob keyBlob
		if err := decode(payload, &blob); err != nil {
			return err
		}
		if blob.Role != kind.String() {
			return fmt.Errorf("%w: payload declares %q, expected %q", protocol.ErrArtifactCorrupt, blob.Role, kind.String())
		}
		if kind == protocol.KindPublicKey {
			s.pubKeyID = blob.KeyID
		}
	case protocol.KindComparisonContext:
		var blob comparisonBlob
		if err := decode(payload, &blob); err != nil {
			return err
		}
		if blob.CompLogQ != s.params.CompLogQ || blob.Beta <= 0 {
			return fmt.Errorf("%w: comparison context does not match the loaded context", protocol.ErrArtifactCorrupt)
		}
	case protocol.KindRefreshKey, protocol.KindKeySwitchKey:
		var blob bundleBlob
		if err := decode(payload, &blob); err != nil {
			return err
		}
		if blob.BaseG != baseG {
			return fmt.Errorf("%w: bundle generated for baseG=%d, expected baseG=%d", protocol.ErrKeyMismatch, blob.BaseG, baseG)
		}
	case protocol.KindInitialCiphertext:
		var blob ciphertextBlob
		if err := decode(payload, &blob); err != nil {
			return err
		}
		s.inputCt = &blob
	case protocol.KindResultCiphertext:
		var blob ciphertextBlob
		if err := decode(payload, &blob); err != nil {
			return err
		}
		s.resultCt = &blob
		return nil
	default:
		return fmt.Errorf("%w: cannot import %s", protocol.ErrEvaluation, kind)
	}

	s.have[kind] = true
	return nil
}

func (s *Session) Precompute(numValues int) error {
	if !s.inited || !s.have[protocol.KindComparisonContext] {
		return fmt.Errorf("%w: precompute before the comparison context is loaded", protocol.ErrEvaluation)
	}
	if !s.have[protocol.KindRefreshKey] || !s.have[protocol.KindKeySwitchKey] {
		return fmt.Errorf("%w: precompute before the bootstrapping bundle is loaded", protocol.ErrEvaluation)
	}
	if s.precomped {
		return fmt.Errorf("%w: precompute runs exactly once per loaded context", protocol.ErrEvaluation)
	}
	if numValues < 1 || numValues > s.params.BatchSize {
		return fmt.Errorf("%w: precompute for %d values, batch size is %d", protocol.ErrEvaluation, numValues, s.params.BatchSize)
	}
	// Plaintext modulus available after the sign scaling: Q / (2*beta).
	pLWE := (uint64(1) << uint(s.params.CompLogQ)) / (2 * beta)
	s.quantum = 1 / float64(pLWE)
	s.precomped = true
	return nil
}

func (s *Session) EvalArgmin(numValues, numOutputs, firstIndex int) error {
	if !s.precomped {
		return fmt.Errorf("%w: argmin before the comparison precompute", protocol.ErrEvaluation)
	}
	for _, k := range []protocol.ArtifactKind{
		protocol.KindSwitchKey,
		protocol.KindMultKey,
		protocol.KindRotationKey,
		protocol.KindRefreshKey,
		protocol.KindKeySwitchKey,
		protocol.KindPublicKey,
	} {
		if !s.have[k] {
			return fmt.Errorf("%w: argmin requires %s to be loaded", protocol.ErrEvaluation, k)
		}
	}
	if s.inputCt == nil {
		return fmt.Errorf("%w: argmin without an input ciphertext", protocol.ErrEvaluation)
	}
	if s.inputCt.KeyID != s.pubKeyID {
		return fmt.Errorf("%w: input ciphertext key does not match the loaded public key", protocol.ErrEvaluation)
	}
	if firstIndex < 0 || firstIndex+numValues > len(s.inputCt.Slots) {
		return fmt.Errorf("%w: argmin window [%d, %d) outside the %d input slots",
			protocol.ErrEvaluation, firstIndex, firstIndex+numValues, len(s.inputCt.Slots))
	}

	window := s.inputCt.Slots[firstIndex : firstIndex+numValues]
	// First-occurrence tie break: a later slot must undercut the current
	// minimum by more than the fixed-point quantum to take over.
	pos := 0
	for i, v := range window {
		if v < window[pos]-s.quantum {
			pos = i
		}
	}

	indicator := make([]float64, numValues)
	for i := range indicator {
		bit := 0.0
		if i == pos {
			bit = 1.0
		}
		if s.params.OneHot {
			indicator[i] = bit + (s.rng.Float64()-0.5)*1e-9
		} else {
			// Near-binary approximation as it comes out of the sign
			// evaluation, without post-rounding.
			indicator[i] = bit + (s.rng.Float64()-0.5)*1e-3
		}
	}

	s.resultCt = &ciphertextBlob{KeyID: s.pubKeyID, Scheme: "comparison", Slots: indicator}
	return nil
}

func (s *Session) DecryptResult() ([]float64, error) {
	if s.keyID == 0 {
		return nil, fmt.Errorf("%w: decryption requires the retained secret key", protocol.ErrEvaluation)
	}
	if s.resultCt == nil {
		return nil, fmt.Errorf("%w: no result ciphertext loaded", protocol.ErrEvaluation)
	}
	if s.resultCt.KeyID != s.keyID {
		return nil, fmt.Errorf("%w: result is not encrypted under this session's key", protocol.ErrEvaluation)
	}
	return append([]float64(nil), s.resultCt.Slots...), nil
}

// Reset drops all generated and loaded material. The randomness source
// survives so a re-generated session gets a fresh key identity.
func (s *Session) Reset() {
	*s = Session{rng: s.rng}
}
