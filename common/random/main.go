package random

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// GetUUID generates a UUID and returns it as a string without hyphens.
func GetUUID() string {
	code := uuid.New().String()
	code = strings.Replace(code, "-", "", -1)
	return code
}

const keyChars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GetRandomString generates a random string of the specified length
// using a mix of numbers and letters (both uppercase and lowercase).
func GetRandomString(length int) string {
	key := make([]byte, length)
	for i := range length {
		key[i] = keyChars[RandRange(0, len(keyChars))]
	}
	return string(key)
}

// RandRange returns a random number between min and max (max is not included)
func RandRange(min, max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min)))
	if err != nil {
		// This is unlikely to result in an error, especially on Linux, so it's safe to keep as is.
		panic(err)
	}
	return min + int(n.Int64())
}

// Source picks indexes in [0, n). Tests swap it for a deterministic sequence.
type Source interface {
	Intn(n int) int
}

// CryptoSource draws from crypto/rand.
type CryptoSource struct{}

func (CryptoSource) Intn(n int) int {
	return RandRange(0, n)
}

// Choice returns a uniformly chosen element of items. items must not be empty.
func Choice[T any](src Source, items []T) T {
	if src == nil {
		src = CryptoSource{}
	}
	return items[src.Intn(len(items))]
}

// NewSeededSource returns a reproducible Source. Not safe for concurrent use.
func NewSeededSource(seed uint64) Source {
	return seededSource{r: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type seededSource struct {
	r *mrand.Rand
}

func (s seededSource) Intn(n int) int {
	return s.r.IntN(n)
}
