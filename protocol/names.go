package protocol

import "fmt"

// Names maps every artifact of the protocol catalog to its store key,
// decoupling the naming contract from any one storage backend. The zero
// value is unusable; start from DefaultNames.
type Names struct {
	Context           string
	PublicKey         string
	MultKey           string
	RotationKey       string
	SwitchKey         string
	ComparisonContext string
	RefreshKey        string
	KeySwitchKey      string
	InitialCiphertext string
	ResultCiphertext  string
}

// DefaultNames returns the fixed logical-name scheme of the protocol.
func DefaultNames() Names {
	return Names{
		Context:           "context",
		PublicKey:         "public-key",
		MultKey:           "mult-key",
		RotationKey:       "rotation-key",
		SwitchKey:         "switch-key",
		ComparisonContext: "comparison-context",
		RefreshKey:        "refresh-key",
		KeySwitchKey:      "key-switch-key",
		InitialCiphertext: "initial-ciphertext",
		ResultCiphertext:  "result-ciphertext",
	}
}

// BundleRefreshKey returns the store key of the refresh key generated for a
// given baseG.
func (n Names) BundleRefreshKey(baseG uint32) string {
	return fmt.Sprintf("%d-%s", baseG, n.RefreshKey)
}

// BundleKeySwitchKey returns the store key of the key-switching key generated
// for a given baseG.
func (n Names) BundleKeySwitchKey(baseG uint32) string {
	return fmt.Sprintf("%d-%s", baseG, n.KeySwitchKey)
}

// forKind resolves the store key of a non-bundled artifact kind.
func (n Names) forKind(kind ArtifactKind) string {
	switch kind {
	case KindContext:
		return n.Context
	case KindPublicKey:
		return n.PublicKey
	case KindMultKey:
		return n.MultKey
	case KindRotationKey:
		return n.RotationKey
	case KindSwitchKey:
		return n.SwitchKey
	case KindComparisonContext:
		return n.ComparisonContext
	case KindRefreshKey:
		return n.RefreshKey
	case KindKeySwitchKey:
		return n.KeySwitchKey
	case KindInitialCiphertext:
		return n.InitialCiphertext
	case KindResultCiphertext:
		return n.ResultCiphertext
	}
	return ""
}
