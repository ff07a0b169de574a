package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// HashBytes computes the raw SHA-1 hash of data and returns it as a
// lowercase hex-encoded Hash.
func HashBytes(data []byte) Hash {
	sum := sha1.Sum(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashObject computes the SHA-1 of the envelope "type len\0content",
// Git's object hashing. Pure function of its inputs.
func HashObject(objType ObjectType, data []byte) Hash {
	h := sha1.New()
	fmt.Fprintf(h, "%s %d\x00", objType, len(data))
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// hashHexToBytes decodes a full hex digest to its raw 20-byte form.
func hashHexToBytes(h Hash) ([]byte, error) {
	if len(h) != 40 {
		return nil, fmt.Errorf("hash length must be 40 hex chars, got %d", len(h))
	}
	raw, err := hex.DecodeString(string(h))
	if err != nil {
		return nil, fmt.Errorf("invalid hash %q: %w", h, err)
	}
	return raw, nil
}

func hashFromRaw(raw []byte) Hash {
	return Hash(hex.EncodeToString(raw))
}
