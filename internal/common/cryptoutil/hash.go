// Package cryptoutil computes content digests for reconstructed files
package cryptoutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// ErrUnsupportedAlgorithm is returned for unknown algorithm names
var ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

// HashAlgorithm represents supported hash algorithms
type HashAlgorithm string

const (
	// None disables digests
	None HashAlgorithm = ""

	// BLAKE2b is BLAKE2b-256
	BLAKE2b HashAlgorithm = "blake2b"

	// BLAKE3 is BLAKE3 with a 256-bit output
	BLAKE3 HashAlgorithm = "blake3"

	// SHA256 algorithm
	SHA256 HashAlgorithm = "sha256"
)

// Algorithms lists the digests NewHasher accepts
func Algorithms() []HashAlgorithm {
	return []HashAlgorithm{BLAKE2b, BLAKE3, SHA256}
}

// Hasher provides an interface for hashing operations
type Hasher interface {
	// Algorithm names the digest
	Algorithm() HashAlgorithm

	// Hash hashes the provided data
	Hash(data []byte) (string, error)

	// HashReader hashes data from a reader
	HashReader(reader io.Reader) (string, error)

	// HashWith hashes whatever write sends to the writer it is given
	HashWith(write func(io.Writer) error) (string, error)

	// Verify checks if the provided hash matches the calculated hash for the data
	Verify(data []byte, expectedHash string) (bool, error)
}

func algorithmList() string {
	names := make([]string, 0, len(Algorithms()))
	for _, a := range Algorithms() {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}

// hasherImpl implements the Hasher interface
type hasherImpl struct {
	algorithm HashAlgorithm
	newHash   func() hash.Hash
}

func newBLAKE2b() hash.Hash {
	// only fails for bad key lengths; there is no key
	h, _ := blake2b.New256(nil)
	return h
}

func newBLAKE3() hash.Hash {
	return blake3.New()
}

// NewHasher creates a new Hasher for the specified algorithm
func NewHasher(algorithm HashAlgorithm) (Hasher, error) {
	var newHashFunc func() hash.Hash

	switch HashAlgorithm(strings.ToLower(string(algorithm))) {
	case BLAKE2b:
		newHashFunc = newBLAKE2b
	case BLAKE3:
		newHashFunc = newBLAKE3
	case SHA256:
		newHashFunc = sha256.New
	default:
		return nil, fmt.Errorf("%w: '%s' (want one of %s)", ErrUnsupportedAlgorithm, algorithm, algorithmList())
	}

	return &hasherImpl{
		algorithm: HashAlgorithm(strings.ToLower(string(algorithm))),
		newHash:   newHashFunc,
	}, nil
}

func (h *hasherImpl) Algorithm() HashAlgorithm {
	return h.algorithm
}

// Hash hashes the provided data
func (h *hasherImpl) Hash(data []byte) (string, error) {
	hasher := h.newHash()
	if _, err := hasher.Write(data); err != nil {
		return "", fmt.Errorf("hash operation failed: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashReader hashes data from a reader
func (h *hasherImpl) HashReader(reader io.Reader) (string, error) {
	hasher := h.newHash()
	if _, err := io.Copy(hasher, reader); err != nil {
		return "", fmt.Errorf("hash operation failed: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashWith hashes the output of write
func (h *hasherImpl) HashWith(write func(io.Writer) error) (string, error) {
	hasher := h.newHash()
	if err := write(hasher); err != nil {
		return "", fmt.Errorf("hash operation failed: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Verify checks if the provided hash matches the calculated hash for the data
func (h *hasherImpl) Verify(data []byte, expectedHash string) (bool, error) {
	actualHash, err := h.Hash(data)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actualHash, expectedHash), nil
}

// ParseHashWithAlgorithm splits "blake3:abcd..." into hash and algorithm. A
// bare or unrecognized string is returned as-is with no algorithm.
func ParseHashWithAlgorithm(hashStr string) (string, HashAlgorithm) {
	parts := strings.SplitN(hashStr, ":", 2)
	if len(parts) == 2 {
		switch alg := HashAlgorithm(strings.ToLower(parts[0])); alg {
		case BLAKE2b, BLAKE3, SHA256:
			return parts[1], alg
		}
	}
	return hashStr, None
}
