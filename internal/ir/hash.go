package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with stored values.
const (
	DomainObject = "metadeploy/object/v" + FingerprintVersion
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a stable content hash of obj, including its type tag.
// The store compares fingerprints to skip writes that would not change a row.
func Fingerprint(obj Object) (string, error) {
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", obj.ObjectType(), err)
	}
	return hashWithDomain(DomainObject+"/"+string(obj.ObjectType()), canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when obj is known to be serializable.
func MustFingerprint(obj Object) string {
	fp, err := Fingerprint(obj)
	if err != nil {
		panic(err)
	}
	return fp
}
