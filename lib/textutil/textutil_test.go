package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTitleCase(t *testing.T) {
	require.Equal(t, "Machine Learning", TitleCase("  machine learning "))
	require.Equal(t, "Go", TitleCase("GO"))
	require.Equal(t, "", TitleCase("   "))
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"My Project":               "my-project",
		"Acme — Senior Engineer":   "acme-senior-engineer",
		"  spaces   and---hyphens": "spaces-and-hyphens",
		"C++ & Friends!":           "c-friends",
		"---":                      "",
	}
	for in, want := range cases {
		require.Equal(t, want, Slugify(in), in)
	}

	long := Slugify(strings.Repeat("word ", 40))
	require.LessOrEqual(t, len(long), maxSlugLength)
	require.False(t, strings.HasSuffix(long, "-"))
	require.NotContains(t, long, " ")
}

func TestNormalizeToken(t *testing.T) {
	require.Equal(t, "fulltime", NormalizeToken(" Full Time\n"))
}
