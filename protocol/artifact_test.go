package protocol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	payload := []byte("serialized key material")

	blob := SealArtifact(KindPublicKey, 0, payload)
	got, err := OpenArtifact(KindPublicKey, 0, blob)
	require.NoError(t, err)
	if diff := cmp.Diff(payload, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestSealOpenBundledRoundTrip(t *testing.T) {
	payload := []byte("bundle half")

	blob := SealArtifact(KindRefreshKey, 1<<18, payload)
	got, err := OpenArtifact(KindRefreshKey, 1<<18, blob)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestOpenRejectsWrongKind(t *testing.T) {
	blob := SealArtifact(KindPublicKey, 0, []byte("pk"))

	_, err := OpenArtifact(KindMultKey, 0, blob)
	require.ErrorIs(t, err, ErrArtifactCorrupt)
}

func TestOpenRejectsFlippedBit(t *testing.T) {
	blob := SealArtifact(KindInitialCiphertext, 0, []byte("ciphertext bytes"))
	blob[envelopeHeaderSize] ^= 0x01

	_, err := OpenArtifact(KindInitialCiphertext, 0, blob)
	require.ErrorIs(t, err, ErrArtifactCorrupt)
}

func TestOpenRejectsTruncation(t *testing.T) {
	blob := SealArtifact(KindRotationKey, 0, []byte("rotation keys"))

	for _, n := range []int{0, envelopeHeaderSize - 1, len(blob) - 1} {
		_, err := OpenArtifact(KindRotationKey, 0, blob[:n])
		require.ErrorIs(t, err, ErrArtifactCorrupt, "truncated to %d bytes", n)
	}
}

func TestOpenRejectsVersionSkew(t *testing.T) {
	blob := SealArtifact(KindContext, 0, []byte("params"))
	blob[4] = envelopeVersion + 1

	_, err := OpenArtifact(KindContext, 0, blob)
	require.ErrorIs(t, err, ErrArtifactCorrupt)
}

func TestBundleBaseGMismatch(t *testing.T) {
	// A bundle stored under the wrong base is a key mismatch, not corruption:
	// the artifact is intact, it just belongs to a different bundle.
	for _, kind := range []ArtifactKind{KindRefreshKey, KindKeySwitchKey} {
		blob := SealArtifact(kind, 1<<18, []byte("bundle"))

		_, err := OpenArtifact(kind, 1<<19, blob)
		require.ErrorIs(t, err, ErrKeyMismatch, "kind %s", kind)
	}
}

func TestUnbundledBaseGTagIsCorruption(t *testing.T) {
	blob := SealArtifact(KindPublicKey, 7, []byte("pk"))

	_, err := OpenArtifact(KindPublicKey, 0, blob)
	require.ErrorIs(t, err, ErrArtifactCorrupt)
	require.NotErrorIs(t, err, ErrKeyMismatch)
}

func TestKindNames(t *testing.T) {
	names := DefaultNames()
	kinds := []ArtifactKind{
		KindContext, KindPublicKey, KindMultKey, KindRotationKey,
		KindSwitchKey, KindComparisonContext, KindRefreshKey,
		KindKeySwitchKey, KindInitialCiphertext, KindResultCiphertext,
	}
	for _, kind := range kinds {
		require.Equal(t, names.forKind(kind), kind.String())
	}
	require.Equal(t, "invalid", ArtifactKind(200).String())
}
