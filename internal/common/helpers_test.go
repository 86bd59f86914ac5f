package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLamportsToSOL(t *testing.T) {
	assert.Equal(t, "0.000000000", LamportsToSOL(0))
	assert.Equal(t, "0.000000001", LamportsToSOL(1))
	assert.Equal(t, "0.024981836", LamportsToSOL(24981836))
	assert.Equal(t, "1.000000000", LamportsToSOL(1_000_000_000))
	assert.Equal(t, "12.500000000", LamportsToSOL(12_500_000_000))
}

func TestSOLToLamports(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"0.024981836", 24981836},
		{"1", 1_000_000_000},
		{"1.5", 1_500_000_000},
		{" 2.25 ", 2_250_000_000},
		{"0.0000000019", 1}, // extra precision truncated
	}
	for _, c := range cases {
		got, err := SOLToLamports(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestSOLToLamportsInvalid(t *testing.T) {
	for _, in := range []string{"", "1.2.3", "abc", "-1"} {
		_, err := SOLToLamports(in)
		assert.Error(t, err, in)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, lamports := range []uint64{0, 1, 5000, 1_000_000_000, 987_654_321_012} {
		got, err := SOLToLamports(LamportsToSOL(lamports))
		require.NoError(t, err)
		assert.Equal(t, lamports, got)
	}
}
