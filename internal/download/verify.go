package download

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// verifyHash reports whether data's sha256 digest matches want (a hex
// string), using a constant-time comparison the same way
// jinterlante1206-AleutianLocal/pkg/ux/integrity.go's secureHashEqual
// guards its hash-chain comparisons against timing side channels.
func verifyHash(data []byte, want string) (gotHex string, ok bool) {
	sum := sha256.Sum256(data)
	got := hex.EncodeToString(sum[:])
	return got, subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// verifySignature reports whether sigB64 (base64-encoded) is a valid
// Ed25519 signature of data under pub. An empty signature is treated as
// "nothing to verify" by the caller, not as a failure here.
//
// No example in the retrieval pack carries a concrete Ed25519
// sign/verify call body — other_examples/davidahmann-gait__pack.go wires
// the same shape (an ed25519.PublicKey plus a RequireSignature gate
// passed to a verify call over a signed digest) but its actual signature
// math lives in an unretrieved internal package. crypto/ed25519 is used
// directly here rather than reinventing that package's role; see
// DESIGN.md.
func verifySignature(pub ed25519.PublicKey, data []byte, sigB64 string) bool {
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, data, sig)
}
