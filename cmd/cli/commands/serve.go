package commands

import (
	"factorlab/cmd"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the http api",
	RunE:  runServe,
}

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 3009, "listen port")
}

func runServe(c *cobra.Command, args []string) error {
	deps, err := cmd.InitializeDependencies(dataDir)
	if err != nil {
		return err
	}
	defer cmd.CloseDependencies(deps)

	deps.Log.Infof("listening on :%d", servePort)
	return deps.ApiHandler.StartApi(servePort)
}
