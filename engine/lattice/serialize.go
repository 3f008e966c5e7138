package lattice

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"github.com/hybridhe/switchmin/protocol"
)

// packPayload frames a list of serialized objects into one payload:
// a big-endian count followed by length-prefixed blobs. Multi-key artifacts
// (rotation keys, the switch key pair, the bundle key-switch half) travel as
// one payload each.
func packPayload(blobs ...[]byte) []byte {
	size := 4
	for _, b := range blobs {
		size += 4 + len(b)
	}
	out := make([]byte, 0, size)
	out = binary.BigEndian.AppendUint32(out, uint32(len(blobs)))
	for _, b := range blobs {
		out = binary.BigEndian.AppendUint32(out, uint32(len(b)))
		out = append(out, b...)
	}
	return out
}

func unpackPayload(payload []byte) ([][]byte, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: truncated multi-key payload", protocol.ErrArtifactCorrupt)
	}
	count := binary.BigEndian.Uint32(payload)
	payload = payload[4:]

	blobs := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(payload) < 4 {
			return nil, fmt.Errorf("%w: truncated multi-key payload", protocol.ErrArtifactCorrupt)
		}
		n := binary.BigEndian.Uint32(payload)
		payload = payload[4:]
		if uint32(len(payload)) < n {
			return nil, fmt.Errorf("%w: truncated multi-key payload", protocol.ErrArtifactCorrupt)
		}
		blobs = append(blobs, payload[:n])
		payload = payload[n:]
	}
	if len(payload) != 0 {
		return nil, fmt.Errorf("%w: trailing bytes after multi-key payload", protocol.ErrArtifactCorrupt)
	}
	return blobs, nil
}

type binaryMarshaler interface {
	MarshalBinary() ([]byte, error)
}

func packKeys(keys ...binaryMarshaler) ([]byte, error) {
	blobs := make([][]byte, len(keys))
	for i, k := range keys {
		data, err := k.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("%w: %T: %v", protocol.ErrEvaluation, k, err)
		}
		blobs[i] = data
	}
	return packPayload(blobs...), nil
}

// Export serializes one generated object into its artifact payload.
func (s *Session) Export(kind protocol.ArtifactKind, baseG uint32) ([]byte, error) {
	if kind == protocol.KindResultCiphertext {
		if s.resultCt == nil {
			return nil, fmt.Errorf("%w: no result ciphertext to export", protocol.ErrEvaluation)
		}
		return s.resultCt.MarshalBinary()
	}

	if !s.inited {
		return nil, fmt.Errorf("%w: export before context generation", protocol.ErrEvaluation)
	}
	if kind != protocol.KindContext && s.sk == nil {
		return nil, fmt.Errorf("%w: export of %s before key generation", protocol.ErrEvaluation, kind)
	}

	switch kind {
	case protocol.KindContext:
		return s.params.MarshalBinary()
	case protocol.KindPublicKey:
		return s.pk.MarshalBinary()
	case protocol.KindMultKey:
		return s.rlk.MarshalBinary()
	case protocol.KindRotationKey:
		keys := make([]binaryMarshaler, len(s.gks))
		for i, gk := range s.gks {
			keys[i] = gk
		}
		return packKeys(keys...)
	case protocol.KindSwitchKey:
		return packKeys(s.swkToComp, s.swkFromComp)
	case protocol.KindComparisonContext:
		return json.Marshal(s.comp)
	case protocol.KindRefreshKey:
		bundle, ok := s.bundles[baseG]
		if !ok {
			return nil, fmt.Errorf("%w: no bundle generated for baseG=%d", protocol.ErrEvaluation, baseG)
		}
		return bundle.rlk.MarshalBinary()
	case protocol.KindKeySwitchKey:
		bundle, ok := s.bundles[baseG]
		if !ok {
			return nil, fmt.Errorf("%w: no bundle generated for baseG=%d", protocol.ErrEvaluation, baseG)
		}
		keys := make([]binaryMarshaler, len(bundle.gks))
		for i, gk := range bundle.gks {
			keys[i] = gk
		}
		return packKeys(keys...)
	case protocol.KindInitialCiphertext:
		if s.inputCt == nil {
			return nil, fmt.Errorf("%w: no input ciphertext to export", protocol.ErrEvaluation)
		}
		return s.inputCt.MarshalBinary()
	}
	return nil, fmt.Errorf("%w: cannot export %s", protocol.ErrEvaluation, kind)
}

// Import deserializes one artifact payload into the session. The context
// must come first; it rebuilds the scheme objects every other kind needs.
func (s *Session) Import(kind protocol.ArtifactKind, baseG uint32, payload []byte) error {
	if kind == protocol.KindContext {
		if s.inited {
			return fmt.Errorf("%w: context already present", protocol.ErrEvaluation)
		}
		var params ckks.Parameters
		if err := params.UnmarshalBinary(payload); err != nil {
			return fmt.Errorf("%w: context: %v", protocol.ErrArtifactCorrupt, err)
		}
		s.params = params
		s.encoder = ckks.NewEncoder(params)
		s.kgen = rlwe.NewKeyGenerator(s.params)
		s.pool = newSlotPool(s.params.MaxSlots())
		s.bundles = make(map[uint32]*bootstrapBundle)
		s.inited = true
		return nil
	}

	if !s.inited {
		return fmt.Errorf("%w: import of %s before the context is loaded", protocol.ErrEvaluation, kind)
	}

	switch kind {
	case protocol.KindPublicKey:
		pk := new(rlwe.PublicKey)
		if err := pk.UnmarshalBinary(payload); err != nil {
			return fmt.Errorf("%w: public key: %v", protocol.ErrArtifactCorrupt, err)
		}
		s.pk = pk
		s.encryptor = rlwe.NewEncryptor(s.params, pk)
	case protocol.KindMultKey:
		rlk := new(rlwe.RelinearizationKey)
		if err := rlk.UnmarshalBinary(payload); err != nil {
			return fmt.Errorf("%w: relinearization key: %v", protocol.ErrArtifactCorrupt, err)
		}
		s.rlk = rlk
	case protocol.KindRotationKey:
		gks, err := unpackGaloisKeys(payload)
		if err != nil {
			return err
		}
		s.gks = gks
	case protocol.KindSwitchKey:
		blobs, err := unpackPayload(payload)
		if err != nil {
			return err
		}
		if len(blobs) != 2 {
			return fmt.Errorf("%w: switch key payload holds %d keys, expected 2", protocol.ErrArtifactCorrupt, len(blobs))
		}
		toComp, fromComp := new(rlwe.EvaluationKey), new(rlwe.EvaluationKey)
		if err := toComp.UnmarshalBinary(blobs[0]); err != nil {
			return fmt.Errorf("%w: switch key: %v", protocol.ErrArtifactCorrupt, err)
		}
		if err := fromComp.UnmarshalBinary(blobs[1]); err != nil {
			return fmt.Errorf("%w: switch key: %v", protocol.ErrArtifactCorrupt, err)
		}
		s.swkToComp, s.swkFromComp = toComp, fromComp
	case protocol.KindComparisonContext:
		comp := new(comparisonConfig)
		if err := json.Unmarshal(payload, comp); err != nil {
			return fmt.Errorf("%w: comparison context: %v", protocol.ErrArtifactCorrupt, err)
		}
		if comp.Beta <= 0 || comp.ScaleSign <= 0 || comp.CompLogQ <= 0 || len(comp.SignPolynomial) == 0 {
			return fmt.Errorf("%w: comparison context with non-positive parameters", protocol.ErrArtifactCorrupt)
		}
		s.comp = comp
	case protocol.KindRefreshKey:
		rlk := new(rlwe.RelinearizationKey)
		if err := rlk.UnmarshalBinary(payload); err != nil {
			return fmt.Errorf("%w: refresh key: %v", protocol.ErrArtifactCorrupt, err)
		}
		bundle := s.bundle(baseG)
		bundle.rlk = rlk
	case protocol.KindKeySwitchKey:
		gks, err := unpackGaloisKeys(payload)
		if err != nil {
			return err
		}
		bundle := s.bundle(baseG)
		bundle.gks = gks
	case protocol.KindInitialCiphertext:
		ct := new(rlwe.Ciphertext)
		if err := ct.UnmarshalBinary(payload); err != nil {
			return fmt.Errorf("%w: input ciphertext: %v", protocol.ErrArtifactCorrupt, err)
		}
		s.inputCt = ct
	case protocol.KindResultCiphertext:
		ct := new(rlwe.Ciphertext)
		if err := ct.UnmarshalBinary(payload); err != nil {
			return fmt.Errorf("%w: result ciphertext: %v", protocol.ErrArtifactCorrupt, err)
		}
		s.resultCt = ct
	default:
		return fmt.Errorf("%w: cannot import %s", protocol.ErrEvaluation, kind)
	}
	return nil
}

func (s *Session) bundle(baseG uint32) *bootstrapBundle {
	if b, ok := s.bundles[baseG]; ok {
		return b
	}
	b := &bootstrapBundle{baseG: baseG}
	s.bundles[baseG] = b
	return b
}

func unpackGaloisKeys(payload []byte) ([]*rlwe.GaloisKey, error) {
	blobs, err := unpackPayload(payload)
	if err != nil {
		return nil, err
	}
	gks := make([]*rlwe.GaloisKey, len(blobs))
	for i, blob := range blobs {
		gk := new(rlwe.GaloisKey)
		if err := gk.UnmarshalBinary(blob); err != nil {
			return nil, fmt.Errorf("%w: rotation key %d: %v", protocol.ErrArtifactCorrupt, i, err)
		}
		gks[i] = gk
	}
	return gks, nil
}
