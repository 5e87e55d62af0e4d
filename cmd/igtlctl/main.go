package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "igtlctl",
		Short: "Stream tracked entity poses to a navigation server",
		Long: `igtlctl connects to a navigation server over TCP, streams the pose of
every entity in its manifest as TRANSFORM messages and forwards inbound
TRANSFORM and IMAGE messages to local viewers over websocket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		connectCmd(),
		mockCmd(),
		templateCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "igtlctl: %v\n", err)
		os.Exit(1)
	}
}
