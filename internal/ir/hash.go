package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainDiffs   = "redstonesim/diffs/v1"
	DomainRequest = "redstonesim/request/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the domain-separated hex digest of v's canonical JSON.
func Digest(domain string, v any) (string, error) {
	canonical, err := Canonicalize(v)
	if err != nil {
		return "", fmt.Errorf("Digest(%s): %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// DiffDigest identifies a diff log. Two runs with equal diff logs have equal
// digests regardless of elapsed time.
func DiffDigest(diffs any) (string, error) {
	return Digest(DomainDiffs, diffs)
}

// RequestDigest identifies a request by content.
func RequestDigest(req any) (string, error) {
	return Digest(DomainRequest, req)
}

// MustDiffDigest is like DiffDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDiffDigest(diffs any) string {
	d, err := DiffDigest(diffs)
	if err != nil {
		panic(err)
	}
	return d
}
