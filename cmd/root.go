package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ds24m038/GenAI-Table-Processing/utils/config"
)

// version is a placeholder for the version string, which will be set at build time.
var version string

var verbose bool
var debug bool

// envConfig holds the loaded environment configuration, available to all commands
var envConfig *config.EnvConfig

var rootCmd = &cobra.Command{
	Use:   "tableproc",
	Short: "Enrich spreadsheet tables with AI-generated columns",
	Long: `Tableproc runs natural-language processing steps over every row of a
CSV or XLSX table. Step prompts reference columns with {@Column}
placeholders; the model's JSON reply is merged back into the table as
AI_ prefixed columns.

Getting Started:
  1. tableproc configure      Store your provider API keys
  2. tableproc process        Run steps over a table file
  3. tableproc server         Serve the pipeline over HTTP

Configuration is stored in ~/.tableproc/config.yaml`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Remove timestamps for cleaner CLI output. Server mode sets its
		// own log flags with timestamps.
		log.SetFlags(0)

		config.Verbose = verbose
		config.Debug = debug

		envPath := config.GetEnvPath()
		if verbose {
			log.Printf("[DEBUG] Loading environment configuration from %s\n", envPath)
		}

		var err error
		envConfig, err = config.LoadEnvConfig(envPath)
		if err != nil {
			return fmt.Errorf("error loading environment configuration: %w", err)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}

// getVersion returns the build-time injected version, or a development marker.
func getVersion() string {
	if version != "" {
		return version
	}
	return "dev (build with: go build -ldflags \"-X 'github.com/ds24m038/GenAI-Table-Processing/cmd.version=vX.Y.Z'\")"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the current tableproc version.`,
	Run: func(cmd *cobra.Command, args []string) {
		log.Printf("tableproc version: %s\n", getVersion())
	},
}

func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.Execute()
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "unknown command") {
			cmdPath := strings.Trim(strings.TrimPrefix(errMsg, "unknown command"), `"`+` for "tableproc"`)
			// The unknown command might be a table filename intended for 'process'
			if looksLikeTableFile(cmdPath) {
				log.Printf("To process a table, use the 'process' command:\n\n   tableproc process %s --steps steps.yaml\n\n", cmdPath)
			} else {
				fmt.Fprintln(os.Stderr, err)
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func looksLikeTableFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".csv") || strings.HasSuffix(lower, ".xlsx")
}
