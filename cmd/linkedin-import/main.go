package main

import (
	"linkedin-importer/cmd/linkedin-import/commands"
	"linkedin-importer/lib/serviceutil"
	"linkedin-importer/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()
	telemetry.SetupFromEnv(ctx, "linkedin-import")
	commands.ExecuteContext(ctx)
}
