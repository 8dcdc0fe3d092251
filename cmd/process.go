package cmd

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ds24m038/GenAI-Table-Processing/utils/processor"
	"github.com/ds24m038/GenAI-Table-Processing/utils/table"
	"github.com/ds24m038/GenAI-Table-Processing/utils/template"
)

var stepsFile string
var previewFlag bool
var outputFile string

var processCmd = &cobra.Command{
	Use:   "process <table.csv|table.xlsx>",
	Short: "Run processing steps over a table file",
	Long: `Execute the configured processing steps over every row of a CSV or
XLSX table. Each step sends one prompt per row to its model and merges
the JSON reply back into the table as AI_ prefixed columns.

Steps are defined in a YAML file:

  steps:
    - name: Sentiment
      prompt: "Classify the sentiment of: {@CustomerReview}"
      output_fields: "sentiment, confidence"
      model: gpt-4o-mini`,
	Example: `  # Process every row
  tableproc process reviews.csv --steps steps.yaml

  # Preview against the first row only
  tableproc process reviews.csv --steps steps.yaml --preview

  # Choose the output location
  tableproc process reviews.xlsx --steps steps.yaml -o enriched.xlsx`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tableFile := args[0]

		steps, err := processor.LoadStepsFile(stepsFile)
		if err != nil {
			log.Printf("Error loading steps file %s: %v\n", stepsFile, err)
			os.Exit(1)
		}
		if len(steps.Steps) == 0 {
			log.Printf("Error: steps file %s defines no steps\n", stepsFile)
			os.Exit(1)
		}

		if verbose {
			log.Printf("[DEBUG] Reading table file: %s\n", tableFile)
		}
		tbl, err := table.LoadFile(tableFile)
		if err != nil {
			log.Printf("Error reading table file %s: %v\n", tableFile, err)
			os.Exit(1)
		}

		log.Printf("Loaded %s: %d rows, %d columns\n", tableFile, len(tbl.Rows), len(tbl.Columns))
		for i, step := range steps.Steps {
			log.Printf("  Step %s (model %s)\n", step.Label(i), step.EffectiveModel(envConfig.DefaultModel))
			if refs := template.Unique(step.Prompt); len(refs) > 0 {
				log.Printf("    References: %s\n", strings.Join(refs, ", "))
			}
		}
		if previewFlag {
			log.Println("Preview mode: processing the first row only")
		}

		proc := processor.NewProcessor(steps, envConfig, verbose)
		proc.SetProgress(func(done, total int) {
			log.Printf("Processed row %d/%d\n", done, total)
		})

		outPath := outputFile
		if outPath == "" {
			outPath = defaultOutputPath(tableFile)
		}

		summary, runErr := proc.Run(cmd.Context(), tbl, previewFlag)
		if runErr != nil {
			log.Printf("Error during processing: %v\n", runErr)
			if summary != nil && summary.RowsProcessed > 0 {
				// Keep what was completed before the failure
				if saveErr := tbl.SaveFile(outPath); saveErr != nil {
					log.Printf("Error saving partial results to %s: %v\n", outPath, saveErr)
				} else {
					log.Printf("Saved partial results (%d rows) to %s\n", summary.RowsProcessed, outPath)
					printSummary(summary)
				}
			}
			os.Exit(1)
		}

		if err := tbl.SaveFile(outPath); err != nil {
			log.Printf("Error saving results to %s: %v\n", outPath, err)
			os.Exit(1)
		}
		log.Printf("Saved results to %s\n", outPath)
		printSummary(summary)
	},
}

func printSummary(summary *processor.RunSummary) {
	log.Printf("Rows processed: %d\n", summary.RowsProcessed)
	log.Printf("Tokens: %d prompt / %d completion\n", summary.PromptTokens, summary.CompletionTokens)
	log.Printf("Estimated cost: $%.4f\n", summary.EstimatedCost)
}

// defaultOutputPath derives the output filename from the input, keeping the
// input's format.
func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_processed" + ext
}

func init() {
	processCmd.Flags().StringVarP(&stepsFile, "steps", "s", "", "YAML file defining the processing steps (required)")
	processCmd.Flags().BoolVar(&previewFlag, "preview", false, "process only the first row")
	processCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file path (default: <input>_processed.<ext>)")
	processCmd.MarkFlagRequired("steps")
	rootCmd.AddCommand(processCmd)
}
