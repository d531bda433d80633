package export

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/crypto/argon2"
)

// HashType represents the different hashing algorithms available.
type HashType string

const (
	// HashTypeArgon2id uses the Argon2id algorithm for hashing.
	HashTypeArgon2id HashType = "argon2id"
	// HashTypeSHA256 uses the SHA256 algorithm for hashing.
	HashTypeSHA256 HashType = "sha256"
)

// Valid reports whether the hash type is supported.
func (h HashType) Valid() bool {
	return h == HashTypeArgon2id || h == HashTypeSHA256
}

// HashID converts a Steam id to a hash using the specified algorithm with the provided salt.
func HashID(id uint64, salt string, hashType HashType, iterations uint32, memory uint32) string {
	idBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(idBytes, id)

	var hash []byte

	switch hashType {
	case HashTypeArgon2id:
		hash = argon2.IDKey(idBytes, []byte(salt), iterations, memory*1024, 1, 32)
	case HashTypeSHA256:
		// Iterative SHA256 hashing with salt
		hash = []byte(salt)

		h := sha256.New()
		for range iterations {
			h.Reset()
			h.Write(idBytes)
			h.Write(hash)
			hash = h.Sum(nil)
		}
	}

	return hex.EncodeToString(hash)
}

// hashIDs hashes ids on a bounded pool, keeping the input order.
// done is called once per finished hash.
func hashIDs(ids []uint64, cfg *Config, done func()) []string {
	if len(ids) == 0 {
		return nil
	}

	concurrency := max(1, min(cfg.Concurrency, len(ids)))
	hashes := make([]string, len(ids))

	p := pool.New().WithMaxGoroutines(concurrency)
	for i, id := range ids {
		p.Go(func() {
			hashes[i] = HashID(id, cfg.Salt, HashType(cfg.HashType), cfg.Iterations, cfg.Memory)
			done()
		})
	}
	p.Wait()

	return hashes
}
