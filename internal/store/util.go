package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// GenerateRunID creates a unique, time-ordered run ID.
// Format: run-<timestamp>-<hash>
// Example: run-20260831T143052Z-a3f9c2
func GenerateRunID(timestamp time.Time, email, startURL string) string {
	// Use UTC timestamp in ISO format for consistent ordering
	ts := timestamp.UTC().Format("20060102T150405Z")

	// Short hash from the request plus nanoseconds for uniqueness
	input := fmt.Sprintf("%s|%s|%d", email, startURL, timestamp.UnixNano())
	hash := sha256.Sum256([]byte(input))
	shortHash := hex.EncodeToString(hash[:3])

	return fmt.Sprintf("run-%s-%s", ts, shortHash)
}

// EncodeAnswer serializes an answer value for storage.
func EncodeAnswer(value interface{}) string {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}

// DecodeAnswer deserializes a stored answer, returning the raw string
// when it is not valid JSON.
func DecodeAnswer(encoded string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(encoded), &v); err != nil {
		return encoded
	}
	return v
}
