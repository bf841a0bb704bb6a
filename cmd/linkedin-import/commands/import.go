package commands

import (
	"fmt"
	"os"
	"time"

	"linkedin-importer/lib/configutil"
	"linkedin-importer/lib/scrapers/linkedin"
	"linkedin-importer/lib/serviceutil"
	"linkedin-importer/lib/telemetry"
	"linkedin-importer/services/importer"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type AuthConfig struct {
	Cookie   string `json:"cookie"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type DatabaseConfig struct {
	Dsn string `json:"dsn"`
}

type ScraperConfig struct {
	RequestDelayMs  int  `json:"request_delay_ms"`
	MaxRetries      int  `json:"max_retries"`
	PageTimeoutSec  int  `json:"page_timeout_sec"`
	RotateUserAgent bool `json:"rotate_user_agent"`
}

type Config struct {
	Database     DatabaseConfig `json:"database"`
	Auth         AuthConfig     `json:"auth"`
	Profile      string         `json:"profile"`
	ContactEmail string         `json:"contact_email"`
	Scraper      ScraperConfig  `json:"scraper"`
}

var flags struct {
	config   string
	db       string
	profile  string
	email    string
	cookie   string
	authUser string
	authPass string
	verbose  bool
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&flags.config, "config", "linkedin-import.json5", "Path to the config file.")
	f.StringVar(&flags.db, "db", "", "Database DSN, a sqlite file path or a libsql:// URL.")
	f.StringVar(&flags.profile, "profile", "", "Profile to import: a LinkedIn URL or bare username.")
	f.StringVar(&flags.email, "email", "", "Contact email stored on the imported user.")
	f.StringVar(&flags.cookie, "cookie", "", "LinkedIn li_at session cookie.")
	f.StringVar(&flags.authUser, "auth-email", "", "LinkedIn account email for credential login.")
	f.StringVar(&flags.authPass, "auth-password", "", "LinkedIn account password for credential login.")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Log debug detail for every stage.")
	rootCmd.AddCommand(importCmd)
}

// resolve applies the flag > environment > config file precedence for
// one setting.
func resolve(flagValue, envKey, fileValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		return env
	}
	return fileValue
}

func loadConfig() (Config, error) {
	config, err := configutil.ReadConfig[Config](flags.config)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}

	config.Database.Dsn = resolve(flags.db, "LINKEDIN_IMPORT_DB", config.Database.Dsn)
	config.Profile = resolve(flags.profile, "LINKEDIN_IMPORT_PROFILE", config.Profile)
	config.ContactEmail = resolve(flags.email, "LINKEDIN_IMPORT_EMAIL", config.ContactEmail)
	config.Auth.Cookie = resolve(flags.cookie, "LINKEDIN_COOKIE", config.Auth.Cookie)
	config.Auth.Email = resolve(flags.authUser, "LINKEDIN_AUTH_EMAIL", config.Auth.Email)
	config.Auth.Password = resolve(flags.authPass, "LINKEDIN_AUTH_PASSWORD", config.Auth.Password)

	if config.Database.Dsn == "" {
		return Config{}, fmt.Errorf("no database configured: set database.dsn, --db or LINKEDIN_IMPORT_DB")
	}
	if config.Auth.Cookie == "" && (config.Auth.Email == "" || config.Auth.Password == "") {
		return Config{}, fmt.Errorf("no auth method configured: set a session cookie or email and password")
	}
	return config, nil
}

var importCmd = &cobra.Command{
	Use:   "import [--profile <url or username>]",
	Short: "Imports one LinkedIn profile into the configured database.",
	Run: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(flags.verbose)

		config, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}

		service := importer.NewService(importer.Options{
			ProfileID: config.Profile,
			Email:     config.ContactEmail,
			Credentials: linkedin.Credentials{
				Cookie:   config.Auth.Cookie,
				Email:    config.Auth.Email,
				Password: config.Auth.Password,
			},
			DatabaseDSN:     config.Database.Dsn,
			PageTimeout:     time.Duration(config.Scraper.PageTimeoutSec) * time.Second,
			RequestDelay:    time.Duration(config.Scraper.RequestDelayMs) * time.Millisecond,
			MaxRetries:      config.Scraper.MaxRetries,
			RotateUserAgent: config.Scraper.RotateUserAgent,
		})

		result := service.Run(cmd.Context())
		renderResult(config.Profile, result)
		if !result.Success {
			os.Exit(1)
		}
	},
}

func renderResult(profile string, result importer.ImportResult) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)

	t.AppendHeader(table.Row{"profile", "status", "user id", "projects", "technologies"})
	if result.Success {
		t.AppendRow(table.Row{profile, "imported", result.UserID, result.ProjectsCount, result.TechnologiesCount})
	} else {
		t.AppendRow(table.Row{profile, "failed", "-", 0, 0})
	}
	t.Render()

	if !result.Success {
		fmt.Fprintln(os.Stderr, "import failed:", result.Error)
	}
}
