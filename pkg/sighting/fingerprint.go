package sighting

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// FingerprintSize is the fingerprint length in bytes.
const FingerprintSize = 16

// Fingerprint is a compact hash of an advertisement payload.
// Two sightings with equal fingerprints carry the same payload content.
type Fingerprint [FingerprintSize]byte

// ComputeFingerprint hashes an advertisement payload.
// An empty payload produces the zero fingerprint.
func ComputeFingerprint(payload []byte) Fingerprint {
	var fp Fingerprint
	if len(payload) == 0 {
		return fp
	}
	sum := blake2b.Sum256(payload)
	copy(fp[:], sum[:FingerprintSize])
	return fp
}

// IsZero reports whether the fingerprint is unset.
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// String returns the fingerprint as lowercase hex.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}
