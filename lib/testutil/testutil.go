package testutil

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"linkedin-importer/lib/telemetry"

	_ "modernc.org/sqlite"
)

// SetupDB opens an in-memory sqlite database, applies the schema and
// wires up test telemetry.
func SetupDB(t testing.TB, name, schema string) (*sql.DB, func()) {
	cleanup := telemetry.SetupForTesting(fmt.Sprintf("test:%s", name))

	sqlite, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	_, err = sqlite.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		t.Fatal(err)
	}

	return sqlite, func() {
		sqlite.Close()
		cleanup()
	}
}
