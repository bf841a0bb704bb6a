package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "linkedin-import.json5")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func resetFlags(t *testing.T) {
	for _, key := range []string{
		"LINKEDIN_IMPORT_DB", "LINKEDIN_IMPORT_PROFILE", "LINKEDIN_IMPORT_EMAIL",
		"LINKEDIN_COOKIE", "LINKEDIN_AUTH_EMAIL", "LINKEDIN_AUTH_PASSWORD",
	} {
		t.Setenv(key, "")
	}
	saved := flags
	t.Cleanup(func() { flags = saved })
	flags.config = ""
	flags.db = ""
	flags.profile = ""
	flags.email = ""
	flags.cookie = ""
	flags.authUser = ""
	flags.authPass = ""
}

func TestLoadConfigFromFile(t *testing.T) {
	resetFlags(t)
	flags.config = writeConfig(t, `{
		database: { dsn: "import.db" },
		auth: { cookie: "li-at-value" },
		profile: "jdoe",
		contact_email: "john@x.com",
		scraper: { request_delay_ms: 250, max_retries: 2 },
	}`)

	config, err := loadConfig()
	require.NoError(t, err)
	require.Equal(t, "import.db", config.Database.Dsn)
	require.Equal(t, "li-at-value", config.Auth.Cookie)
	require.Equal(t, "jdoe", config.Profile)
	require.Equal(t, 250, config.Scraper.RequestDelayMs)
}

func TestLoadConfigFlagBeatsEnvBeatsFile(t *testing.T) {
	resetFlags(t)
	flags.config = writeConfig(t, `{
		database: { dsn: "file.db" },
		auth: { cookie: "file-cookie" },
		profile: "file-profile",
	}`)
	t.Setenv("LINKEDIN_IMPORT_DB", "env.db")
	t.Setenv("LINKEDIN_IMPORT_PROFILE", "env-profile")
	flags.db = "flag.db"

	config, err := loadConfig()
	require.NoError(t, err)
	require.Equal(t, "flag.db", config.Database.Dsn)
	require.Equal(t, "env-profile", config.Profile)
	require.Equal(t, "file-cookie", config.Auth.Cookie)
}

func TestLoadConfigExpandsSecretReferences(t *testing.T) {
	resetFlags(t)
	t.Setenv("TEST_LI_COOKIE", "expanded-cookie")
	flags.config = writeConfig(t, `{
		database: { dsn: "import.db" },
		auth: { cookie: "${TEST_LI_COOKIE}" },
	}`)

	config, err := loadConfig()
	require.NoError(t, err)
	require.Equal(t, "expanded-cookie", config.Auth.Cookie)
}

func TestLoadConfigRequiresDatabase(t *testing.T) {
	resetFlags(t)
	flags.config = writeConfig(t, `{ auth: { cookie: "c" } }`)

	_, err := loadConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "database")
}

func TestLoadConfigRequiresAuthMethod(t *testing.T) {
	resetFlags(t)
	flags.config = writeConfig(t, `{
		database: { dsn: "import.db" },
		auth: { email: "j@x.com" },
	}`)

	_, err := loadConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "auth")
}
