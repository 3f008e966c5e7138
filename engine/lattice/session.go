// Package lattice implements the protocol's engine session on RLWE lattices:
// CKKS arithmetic for the vector operations and a minimax sign evaluation
// under a separate comparison secret for the ordering decisions, bridged by
// key switching.
package lattice

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"github.com/hybridhe/switchmin/protocol"
)

// Session holds the key material and scheme objects of one role. A publisher
// session is populated by Init, GenKeys and EncryptInput; a worker session is
// populated object by object through Import.
type Session struct {
	spec   protocol.ParameterSet
	params ckks.Parameters
	inited bool

	encoder *ckks.Encoder
	kgen    *rlwe.KeyGenerator

	sk     *rlwe.SecretKey
	skComp *rlwe.SecretKey
	pk     *rlwe.PublicKey
	rlk    *rlwe.RelinearizationKey
	gks    []*rlwe.GaloisKey

	// swkToComp re-encrypts a ciphertext from the arithmetic secret to the
	// comparison secret; swkFromComp goes the other way.
	swkToComp   *rlwe.EvaluationKey
	swkFromComp *rlwe.EvaluationKey

	// bundles maps baseG to the comparison-side bootstrapping bundle
	// generated (or loaded) for that decomposition base.
	bundles map[uint32]*bootstrapBundle

	comp *comparisonConfig

	encryptor *rlwe.Encryptor
	decryptor *rlwe.Decryptor

	inputCt  *rlwe.Ciphertext
	resultCt *rlwe.Ciphertext

	pre  *precomputation
	pool *slotPool
}

// bootstrapBundle is the comparison-side evaluation key material for one
// decomposition base: the refresh (relinearization) half and the key-switch
// (rotation) half, both digit-decomposed with base 2^log2(baseG).
type bootstrapBundle struct {
	baseG uint32
	rlk   *rlwe.RelinearizationKey
	gks   []*rlwe.GaloisKey
}

var _ protocol.Session = (*Session)(nil)

func New() *Session {
	return &Session{}
}

// Init builds the CKKS context for the parameter set. The modulus chain is
// sized for the whole tournament, so the comparison circuit never needs a
// refresh in mid-flight.
func (s *Session) Init(spec protocol.ParameterSet) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if s.inited {
		return fmt.Errorf("%w: session already initialized", protocol.ErrEvaluation)
	}

	params, err := ckks.NewParametersFromLiteral(parametersLiteral(spec))
	if err != nil {
		return fmt.Errorf("%w: CKKS parameters: %v", protocol.ErrConfiguration, err)
	}

	s.spec = spec
	s.params = params
	s.encoder = ckks.NewEncoder(params)
	s.kgen = rlwe.NewKeyGenerator(params)
	s.pool = newSlotPool(params.MaxSlots())
	s.bundles = make(map[uint32]*bootstrapBundle)
	s.comp = defaultComparisonConfig(spec)
	s.inited = true
	return nil
}

// EncryptInput packs the vector into the first slots of a fresh ciphertext
// under the session's public key.
func (s *Session) EncryptInput(values []float64) error {
	if s.sk == nil || s.encryptor == nil {
		return fmt.Errorf("%w: encryption before key generation", protocol.ErrEvaluation)
	}
	if len(values) > s.spec.BatchSize {
		return fmt.Errorf("%w: %d values exceed the batch size %d", protocol.ErrEvaluation, len(values), s.spec.BatchSize)
	}

	buf := s.pool.get()
	defer s.pool.put(buf)
	copy(buf, values)

	pt := ckks.NewPlaintext(s.params, s.params.MaxLevel())
	if err := s.encoder.Encode(buf, pt); err != nil {
		return fmt.Errorf("%w: encode input: %v", protocol.ErrEvaluation, err)
	}
	ct, err := s.encryptor.EncryptNew(pt)
	if err != nil {
		return fmt.Errorf("%w: encrypt input: %v", protocol.ErrEvaluation, err)
	}
	s.inputCt = ct
	return nil
}

// DecryptResult decrypts the loaded result ciphertext with the retained
// secret key and returns the batch slots.
func (s *Session) DecryptResult() ([]float64, error) {
	if s.sk == nil || s.decryptor == nil {
		return nil, fmt.Errorf("%w: decryption requires the retained secret key", protocol.ErrEvaluation)
	}
	if s.resultCt == nil {
		return nil, fmt.Errorf("%w: no result ciphertext loaded", protocol.ErrEvaluation)
	}

	buf := s.pool.get()
	defer s.pool.put(buf)

	if err := s.encoder.Decode(s.decryptor.DecryptNew(s.resultCt), buf); err != nil {
		return nil, fmt.Errorf("%w: decode result: %v", protocol.ErrEvaluation, err)
	}
	return append([]float64(nil), buf[:s.spec.BatchSize]...), nil
}

// Reset drops every scheme object and all key material the session holds.
// A worker calls this before loading so that nothing from a previous run can
// shadow the published artifacts.
func (s *Session) Reset() {
	*s = Session{}
}
