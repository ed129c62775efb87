package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHiveHandle(t *testing.T) {
	assert := assert.New(t)

	valid := map[string]string{
		"xvlad":        "xvlad",
		"  XVlad  ":    "xvlad",
		"abc-def":      "abc-def",
		"abc.def":      "abc.def",
		"a1b":          "a1b",
		"abc.def.ghi9": "abc.def.ghi9",
	}
	for input, want := range valid {
		got, err := IdentityTypeHive.Normalize(input)
		assert.Nil(err, "input %q", input)
		assert.Equal(want, got)
	}

	invalid := []string{
		"",
		"ab",                // too short
		"abcdefghijklmnopq", // too long
		"1abc",              // starts with digit
		"-abc",              // starts with punctuation
		"abc-",              // ends with punctuation
		"ab..cd",            // adjacent punctuation
		"ab.-cd",            // adjacent punctuation
		"abc.de",            // short dot segment
		"ab.cde",            // short dot segment
		"abc_def",           // invalid character
	}
	for _, input := range invalid {
		_, err := IdentityTypeHive.Normalize(input)
		assert.True(errors.Is(err, ErrValidation), "input %q should be rejected", input)
	}
}

func TestNormalizeEvmAddress(t *testing.T) {
	assert := assert.New(t)

	// Checksummed example address from EIP-55.
	checksummed := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

	t.Run("checksummed input lowercased", func(t *testing.T) {
		got, err := IdentityTypeEvm.Normalize(checksummed)
		assert.Nil(err)
		assert.Equal("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", got)
	})

	t.Run("all-lowercase accepted", func(t *testing.T) {
		got, err := IdentityTypeEvm.Normalize("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
		assert.Nil(err)
		assert.Equal("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", got)
	})

	t.Run("bad checksum rejected", func(t *testing.T) {
		// Flip the case of one letter in the checksummed form.
		_, err := IdentityTypeEvm.Normalize("0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
		assert.True(errors.Is(err, ErrValidation))
	})

	t.Run("format rejected", func(t *testing.T) {
		for _, input := range []string{"", "0x123", "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaeg"} {
			_, err := IdentityTypeEvm.Normalize(input)
			assert.True(errors.Is(err, ErrValidation), "input %q", input)
		}
	})
}

func TestNormalizeFarcasterID(t *testing.T) {
	assert := assert.New(t)

	got, err := IdentityTypeFarcaster.Normalize("12345")
	assert.Nil(err)
	assert.Equal("12345", got)

	for _, input := range []string{"", "12a45", "-1", "fid:123"} {
		_, err := IdentityTypeFarcaster.Normalize(input)
		assert.True(errors.Is(err, ErrValidation), "input %q", input)
	}
}

// Normalization must be idempotent: feeding a canonical identifier back in
// yields the same string, and differently-cased inputs collapse to one
// identity.
func TestNormalizeIdempotent(t *testing.T) {
	assert := assert.New(t)

	cases := map[IdentityType][]string{
		IdentityTypeHive:      {"XVlad", "xvlad"},
		IdentityTypeEvm:       {"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"},
		IdentityTypeFarcaster: {"42", "42"},
	}
	for typ, inputs := range cases {
		first, err := typ.Normalize(inputs[0])
		assert.Nil(err)
		second, err := typ.Normalize(inputs[1])
		assert.Nil(err)
		assert.Equal(first, second, "type %s", typ)

		again, err := typ.Normalize(first)
		assert.Nil(err)
		assert.Equal(first, again, "type %s", typ)
	}
}

func TestUnknownIdentityType(t *testing.T) {
	assert := assert.New(t)
	assert.False(IdentityType("ens").Known())
	_, err := IdentityType("ens").Normalize("whatever")
	assert.True(errors.Is(err, ErrValidation))
}
