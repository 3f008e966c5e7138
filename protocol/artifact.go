package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ArtifactKind identifies the declared type of a persisted cryptographic
// object. There is deliberately no kind for the secret key: it cannot be
// represented as an artifact at all.
type ArtifactKind uint8

const (
	KindUnspecified ArtifactKind = iota
	KindContext
	KindPublicKey
	KindMultKey
	KindRotationKey
	KindSwitchKey
	KindComparisonContext
	KindRefreshKey
	KindKeySwitchKey
	KindInitialCiphertext
	KindResultCiphertext
)

var kindToString = [...]string{
	"unspecified",
	"context",
	"public-key",
	"mult-key",
	"rotation-key",
	"switch-key",
	"comparison-context",
	"refresh-key",
	"key-switch-key",
	"initial-ciphertext",
	"result-ciphertext",
}

// String returns the logical name of the kind.
func (k ArtifactKind) String() string {
	if int(k) >= len(kindToString) {
		return "invalid"
	}
	return kindToString[k]
}

// bundled reports whether the kind belongs to a baseG-indexed bootstrapping
// bundle, in which case the envelope's baseG tag is load-bearing.
func (k ArtifactKind) bundled() bool {
	return k == KindRefreshKey || k == KindKeySwitchKey
}

// Artifact envelope layout, all integers big endian:
//
//	magic(4) | version(1) | kind(1) | baseG(4) | len(8) | payload | digest(32)
//
// The digest is BLAKE2b-256 over everything before it, so truncation,
// bit rot and header tampering all surface as ErrArtifactCorrupt.
var envelopeMagic = [4]byte{'s', 'w', 'm', '1'}

const (
	envelopeVersion    = 1
	envelopeHeaderSize = 4 + 1 + 1 + 4 + 8
	envelopeDigestSize = blake2b.Size256
)

// SealArtifact wraps an engine-serialized payload in the artifact envelope.
func SealArtifact(kind ArtifactKind, baseG uint32, payload []byte) []byte {
	blob := make([]byte, envelopeHeaderSize, envelopeHeaderSize+len(payload)+envelopeDigestSize)
	copy(blob[0:4], envelopeMagic[:])
	blob[4] = envelopeVersion
	blob[5] = byte(kind)
	binary.BigEndian.PutUint32(blob[6:10], baseG)
	binary.BigEndian.PutUint64(blob[10:18], uint64(len(payload)))
	blob = append(blob, payload...)
	digest := blake2b.Sum256(blob)
	return append(blob, digest[:]...)
}

// OpenArtifact validates the envelope of blob and returns the payload.
// A kind other than the declared one, a broken digest or any framing damage
// is ErrArtifactCorrupt; a bundled kind stored under a different baseG than
// the expected one is ErrKeyMismatch.
func OpenArtifact(kind ArtifactKind, baseG uint32, blob []byte) ([]byte, error) {
	if len(blob) < envelopeHeaderSize+envelopeDigestSize {
		return nil, fmt.Errorf("%w: %s: envelope truncated (%d bytes)", ErrArtifactCorrupt, kind, len(blob))
	}
	if !bytes.Equal(blob[0:4], envelopeMagic[:]) {
		return nil, fmt.Errorf("%w: %s: bad envelope magic", ErrArtifactCorrupt, kind)
	}
	if blob[4] != envelopeVersion {
		return nil, fmt.Errorf("%w: %s: unsupported envelope version %d", ErrArtifactCorrupt, kind, blob[4])
	}

	body, digest := blob[:len(blob)-envelopeDigestSize], blob[len(blob)-envelopeDigestSize:]
	sum := blake2b.Sum256(body)
	if !bytes.Equal(sum[:], digest) {
		return nil, fmt.Errorf("%w: %s: digest mismatch", ErrArtifactCorrupt, kind)
	}

	if got := ArtifactKind(blob[5]); got != kind {
		return nil, fmt.Errorf("%w: expected %s, payload declares %s", ErrArtifactCorrupt, kind, got)
	}
	if got := binary.BigEndian.Uint32(blob[6:10]); got != baseG {
		if kind.bundled() {
			return nil, fmt.Errorf("%w: %s generated for baseG=%d, expected baseG=%d", ErrKeyMismatch, kind, got, baseG)
		}
		return nil, fmt.Errorf("%w: %s: unexpected baseG tag %d", ErrArtifactCorrupt, kind, got)
	}
	if got := binary.BigEndian.Uint64(blob[10:18]); got != uint64(len(body)-envelopeHeaderSize) {
		return nil, fmt.Errorf("%w: %s: payload length mismatch", ErrArtifactCorrupt, kind)
	}

	return body[envelopeHeaderSize:], nil
}
