package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for changing the hash input later.
const (
	DomainRecord = "norp/record/v1"
	DomainPlan   = "norp/plan/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentID hashes the canonical JSON of v under domain.
// Equal values produce equal IDs regardless of key order or Unicode form.
func ContentID(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("content id: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}

// RecordID derives a dataset record ID from its natural-language question and
// SQL. It is used when an input line carries no id of its own.
func RecordID(nl, sql string) string {
	id, err := ContentID(DomainRecord, map[string]any{"nl": nl, "sql": sql})
	if err != nil {
		// Strings always marshal.
		panic(err)
	}
	return id[:16]
}
