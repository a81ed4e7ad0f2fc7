package service

import (
	"crypto/rand"
	"strings"
)

const (
	// CodeLength is the fixed length of every access code.
	CodeLength = 12

	// codeAlphabet is the 36-symbol character set codes are drawn from.
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// RandomSource yields uniformly distributed integers in [0, n). Production
// uses CryptoSource; tests may plug in a seeded math/rand.Rand.
type RandomSource interface {
	Intn(n int) int
}

// CodeGenerator produces random fixed-length access codes. It performs no I/O
// and knows nothing about uniqueness; that is the issuer's concern.
type CodeGenerator struct {
	random RandomSource
}

// NewCodeGenerator builds a generator around the given randomness source.
func NewCodeGenerator(random RandomSource) *CodeGenerator {
	return &CodeGenerator{random: random}
}

// Generate returns a 12-character code with each character drawn
// independently and uniformly from the alphabet.
func (g *CodeGenerator) Generate() string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(codeAlphabet[g.random.Intn(len(codeAlphabet))])
	}

	return b.String()
}

// CryptoSource draws randomness from crypto/rand. Rejection sampling keeps
// the distribution uniform for any n up to 256.
type CryptoSource struct{}

// Intn returns a uniform integer in [0, n). n must be in [1, 256].
func (CryptoSource) Intn(n int) int {
	if n <= 0 || n > 256 {
		panic("cryptosource: n out of range")
	}

	limit := 256 - 256%n
	buf := make([]byte, 1)
	for {
		if _, err := rand.Read(buf); err != nil {
			panic("cryptosource: " + err.Error())
		}
		if int(buf[0]) < limit {
			return int(buf[0]) % n
		}
	}
}
