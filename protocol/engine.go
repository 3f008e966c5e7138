package protocol

// Session is the capability surface of the cryptographic engine for one role.
// It owns every piece of generated or loaded key material for that role; the
// protocol never sees ring elements, only opaque serialized payloads moving
// through Export and Import.
//
// Ordering contract, enforced by implementations:
//
//   - GenKeys and EncryptInput require a prior Init.
//   - GenKeys is one-shot per session.
//   - Import(KindContext, ...) initializes a loading session; importing any
//     other kind first fails with ErrEvaluation.
//   - Precompute requires the comparison context and both halves of the
//     bootstrapping bundle to be loaded, and runs exactly once.
//   - EvalArgmin requires Precompute, the switch key, the evaluation keys and
//     the input ciphertext; violations fail with ErrEvaluation, never with a
//     silently wrong result.
//
// Reset discards all material held by the session, including any process-wide
// caches the engine keeps, so a fresh load cannot observe a previous run.
type Session interface {
	// Init builds the scheme contexts from the parameter set.
	Init(params ParameterSet) error

	// GenKeys generates the key pair, the evaluation keys, the scheme-switch
	// key and one bootstrapping bundle per requested baseG.
	GenKeys(baseGs []uint32) error

	// EncryptInput encrypts the data vector under the session's public key.
	EncryptInput(values []float64) error

	// Export serializes one generated object. baseG is only meaningful for
	// bundle kinds and must be zero otherwise.
	Export(kind ArtifactKind, baseG uint32) ([]byte, error)

	// Import deserializes one object into the session. A payload that does
	// not decode into the declared kind fails with ErrArtifactCorrupt.
	Import(kind ArtifactKind, baseG uint32, payload []byte) error

	// Precompute establishes the fixed-point precision and sign-scaling
	// parameters used when values cross into the comparison scheme, from the
	// comparison scheme's noise parameter and the vector's element count.
	Precompute(numValues int) error

	// EvalArgmin evaluates the cross-scheme minimum of the loaded input
	// ciphertext and stores the encrypted result: the minimum value and an
	// indicator marking the position(s) of the minimum, ties broken by first
	// occurrence.
	EvalArgmin(numValues, numOutputs, firstIndex int) error

	// DecryptResult decrypts the loaded result ciphertext with the session's
	// retained secret key.
	DecryptResult() ([]float64, error)

	// Reset returns the session to its pristine state.
	Reset()
}
