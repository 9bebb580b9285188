package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahlg/price-negative-comparison/internal/app"
)

var (
	backfillRegion string
	backfillFrom   string
	backfillTo     string
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Prefetch a historical price range into the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backfillFrom == "" || backfillTo == "" {
			return fmt.Errorf("--from and --to must be provided")
		}

		from, err := time.Parse(time.RFC3339, backfillFrom)
		if err != nil {
			return fmt.Errorf("invalid --from value: %w", err)
		}

		to, err := time.Parse(time.RFC3339, backfillTo)
		if err != nil {
			return fmt.Errorf("invalid --to value: %w", err)
		}

		if !from.Before(to) {
			return fmt.Errorf("--from must be before --to")
		}

		opts := app.BackfillOptions{
			Region: backfillRegion,
			From:   from,
			To:     to,
		}

		return getApp().Backfill(cmd.Context(), opts)
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillRegion, "region", "", "Bidding zone, e.g. SE3")
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "Start timestamp (RFC3339, inclusive)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "End timestamp (RFC3339, exclusive)")

	_ = backfillCmd.MarkFlagRequired("region")
}
