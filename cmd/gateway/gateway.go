package gateway

import (
	"github.com/spf13/cobra"
)

var Cmd = &cobra.Command{
	Use:   "gateway",
	Short: "Serve the local content store over HTTP",
}

func init() {
	Cmd.AddCommand(serveCmd, configCmd)
}
