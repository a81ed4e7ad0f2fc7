package service

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeGeneratorProducesFixedLengthAlphabetCodes(t *testing.T) {
	gen := NewCodeGenerator(rand.New(rand.NewSource(1)))

	for i := 0; i < 1000; i++ {
		code := gen.Generate()
		require.Len(t, code, CodeLength)
		for _, r := range code {
			require.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected character %q in %q", r, code)
		}
	}
}

func TestCodeGeneratorIsDeterministicForSeededSource(t *testing.T) {
	first := NewCodeGenerator(rand.New(rand.NewSource(42)))
	second := NewCodeGenerator(rand.New(rand.NewSource(42)))

	for i := 0; i < 10; i++ {
		require.Equal(t, first.Generate(), second.Generate())
	}
}

func TestCryptoSourceStaysWithinBounds(t *testing.T) {
	src := CryptoSource{}

	for i := 0; i < 1000; i++ {
		n := src.Intn(len(codeAlphabet))
		require.GreaterOrEqual(t, n, 0)
		require.Less(t, n, len(codeAlphabet))
	}
}

func TestCryptoSourceRejectsInvalidRange(t *testing.T) {
	require.Panics(t, func() { CryptoSource{}.Intn(0) })
	require.Panics(t, func() { CryptoSource{}.Intn(257) })
}
