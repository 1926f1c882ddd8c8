// Command agentctl is the agentspine operator CLI: `serve` starts the
// Control Plane (session + pipeline HTTP/WebSocket API), and `docs`
// renders the project-instruction budget a session would inject,
// without standing up any of the rest of the runtime.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	root := &cobra.Command{
		Use:     "agentctl",
		Short:   "agentspine operator CLI",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newDocsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
