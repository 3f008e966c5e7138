package protocol

import "errors"

// Every error produced by a protocol run wraps exactly one of these kinds.
// All of them are fatal for the run: there are no retry paths, the only
// recovery is starting over from scratch.
var (
	// ErrConfiguration reports an invalid parameter combination detected at
	// context-generation time.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrArtifactMissing reports that an expected logical name was never
	// written to the artifact store.
	ErrArtifactMissing = errors.New("artifact missing")

	// ErrArtifactCorrupt reports a payload that is present but does not
	// decode into its declared type.
	ErrArtifactCorrupt = errors.New("artifact corrupt")

	// ErrKeyMismatch reports a bootstrapping key bundle whose baseG does not
	// match the value the loading side expects.
	ErrKeyMismatch = errors.New("bootstrap key baseG mismatch")

	// ErrEvaluation reports a violation of the engine's homomorphic
	// evaluation contract, e.g. EvalArgmin before the precompute step.
	ErrEvaluation = errors.New("evaluation contract violated")
)
