package cmd

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bgdnvk/topicguard/internal/evaluation"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Measure classifier accuracy on labelled queries",
	Long: `Run the classifier over labelled queries and report accuracy.
Without --cases the built-in query set is used. The command fails when accuracy
is below --min-accuracy.

Example cases file:
  cases:
    - query: "What is a trie?"
      expected: true
    - query: "best pizza in town"
      expected: false`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		casesFile, _ := cmd.Flags().GetString("cases")
		minAccuracy, _ := cmd.Flags().GetFloat64("min-accuracy")
		ctx := cmd.Context()

		cases := evaluation.DefaultCases()
		if casesFile != "" {
			loaded, err := evaluation.LoadCases(casesFile)
			if err != nil {
				return err
			}
			cases = loaded
		}

		clf, closeEnc, err := buildClassifier(ctx, settings, log.Logger)
		if err != nil {
			return err
		}
		defer closeEnc()

		report, err := evaluation.Run(ctx, clf, cases, settings.Classifier.Threshold)
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), report)
		return checkAccuracy(report, minAccuracy)
	},
}

func printReport(w io.Writer, report evaluation.Report) {
	for _, o := range report.Outcomes {
		mark := "ok  "
		if !o.Correct() {
			mark = "MISS"
		}
		fmt.Fprintf(w, "%s %-45q expected=%-5t got=%-5t confidence=%.2f\n",
			mark, o.Case.Query, o.Case.Expected, o.Result.IsDSARelated, o.Result.Confidence)
	}
	fmt.Fprintf(w, "\nAccuracy: %d/%d (%.1f%%) at threshold %v\n",
		report.Correct, report.Total, report.Accuracy()*100, report.Threshold)
}

func checkAccuracy(report evaluation.Report, minAccuracy float64) error {
	if report.Accuracy() < minAccuracy {
		return fmt.Errorf("accuracy %.2f below minimum %.2f (%d misses)", report.Accuracy(), minAccuracy, len(report.Misses()))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().String("cases", "", "YAML file with labelled queries")
	evalCmd.Flags().Float64("min-accuracy", 0.8, "fail when accuracy is below this fraction")
}
