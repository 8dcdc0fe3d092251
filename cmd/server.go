package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ds24m038/GenAI-Table-Processing/utils/config"
	"github.com/ds24m038/GenAI-Table-Processing/utils/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the table processing HTTP server",
	Long: `Start an HTTP server exposing the processing pipeline: upload a table,
configure steps, run a preview or full pass, download the enriched result.

The server section of the configuration file controls the port, optional
bearer token authentication and CORS.`,
	Example: `  # Start with the configured (or default) port
  tableproc server

  # Override the port
  tableproc server --port 3000`,
	Run: func(cmd *cobra.Command, args []string) {
		// Server logs keep timestamps
		log.SetFlags(log.LstdFlags)

		serverConfig := envConfig.Server
		if serverConfig == nil {
			serverConfig = config.DefaultServerConfig()
		}
		if serverPort != 0 {
			serverConfig.Port = serverPort
		}

		srv := server.NewServer(envConfig, serverConfig, verbose)
		if err := srv.Start(); err != nil {
			log.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "listen port (overrides the configured port)")
	rootCmd.AddCommand(serverCmd)
}
