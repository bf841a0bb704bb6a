package linkedin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeProfileURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"jdoe", "https://www.linkedin.com/in/jdoe"},
		{"in/jdoe", "https://www.linkedin.com/in/jdoe"},
		{"linkedin.com/in/jdoe", "https://www.linkedin.com/in/jdoe"},
		{"www.linkedin.com/in/jdoe/", "https://www.linkedin.com/in/jdoe"},
		{"http://linkedin.com/in/jdoe", "https://www.linkedin.com/in/jdoe"},
		{"https://www.linkedin.com/in/jdoe", "https://www.linkedin.com/in/jdoe"},
		{"  https://www.linkedin.com/in/jdoe/  ", "https://www.linkedin.com/in/jdoe"},
		{"HTTPS://WWW.LINKEDIN.COM/in/JDoe", "https://www.linkedin.com/in/JDoe"},
	}
	for _, c := range cases {
		got, err := NormalizeProfileURL(c.in)
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, got, c.in)
	}
}

func TestNormalizeProfileURLRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "in/jdoe/details", "not a username"} {
		_, err := NormalizeProfileURL(in)
		require.Error(t, err, in)
	}
}

func TestUsernameFromURL(t *testing.T) {
	require.Equal(t, "jdoe", UsernameFromURL("https://www.linkedin.com/in/jdoe"))
	require.Equal(t, "jdoe", UsernameFromURL("jdoe"))
}
