package main

import (
	"fmt"
	"os"

	"github.com/crucial707/risk-watch/cmd/cli/alerts"
	"github.com/crucial707/risk-watch/cmd/cli/batch"
	"github.com/crucial707/risk-watch/cmd/cli/root"
	"github.com/crucial707/risk-watch/cmd/cli/verify"
	"github.com/crucial707/risk-watch/cmd/cli/watch"
)

func main() {
	rootCmd := root.GetRoot()
	watch.InitWatch(rootCmd)
	alerts.InitAlerts(rootCmd)
	batch.InitBatch(rootCmd)
	verify.InitVerify(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
