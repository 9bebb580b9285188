package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahlg/price-negative-comparison/internal/app"
)

var (
	analyzeInput    string
	analyzeRegion   string
	analyzeCurrency string
	analyzeFrom     string
	analyzeTo       string
	analyzeTopN     int
	analyzeJSON     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a production file against cached spot prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.AnalyzeOptions{
			InputPath: analyzeInput,
			Region:    analyzeRegion,
			Currency:  analyzeCurrency,
			TopN:      analyzeTopN,
			JSON:      analyzeJSON,
		}

		if analyzeFrom != "" {
			from, err := time.Parse(time.RFC3339, analyzeFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		}

		if analyzeTo != "" {
			to, err := time.Parse(time.RFC3339, analyzeTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}

		return getApp().Analyze(cmd.Context(), opts)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "Path to the production CSV file")
	analyzeCmd.Flags().StringVar(&analyzeRegion, "region", "", "Bidding zone, e.g. SE3")
	analyzeCmd.Flags().StringVar(&analyzeCurrency, "currency", "", "Report currency (defaults to config)")
	analyzeCmd.Flags().StringVar(&analyzeFrom, "from", "", "Start timestamp (RFC3339, inclusive; defaults to the data)")
	analyzeCmd.Flags().StringVar(&analyzeTo, "to", "", "End timestamp (RFC3339, exclusive; defaults to the data)")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top", 0, "Rows in the top-hour listings (defaults to config)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Emit the full result as JSON")

	_ = analyzeCmd.MarkFlagRequired("input")
	_ = analyzeCmd.MarkFlagRequired("region")
}
