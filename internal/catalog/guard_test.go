package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardTextRejectsDenylistedKeywords(t *testing.T) {
	cases := []string{
		"DROP TABLE products",
		"drop everything",
		"please SELECT something",
		"union of sets",
		"bulk  insert here",
		"Shutdown now",
	}
	for _, input := range cases {
		err := GuardText("keyword", input)
		require.ErrorIs(t, err, ErrInvalidInput, "input %q", input)
	}
}

func TestGuardTextAllowsOrdinaryText(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"Nước giặt Ariel",
		"updated formula", // substring of a keyword, not a whole word
		"selection box",
		"creates value",
		"coppy", // misspelled, not the keyword
	}
	for _, input := range cases {
		assert.NoError(t, GuardText("name", input), "input %q", input)
	}
}

func TestGuardFilter(t *testing.T) {
	require.NoError(t, GuardFilter(nil))
	require.NoError(t, GuardFilter(&ProductFilter{Keyword: "sữa tắm", BrandName: "Dove"}))

	err := GuardFilter(&ProductFilter{BrandName: "x'; DELETE FROM brands"})
	require.ErrorIs(t, err, ErrInvalidInput)
}
