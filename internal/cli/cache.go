package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cacheClearRegion string
	cacheClearYes    bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the price cache",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show per-region cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CacheInfo(cmd.Context())
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop cached prices for one region or all of them",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cacheClearYes {
			return fmt.Errorf("refusing to clear without --yes")
		}
		return getApp().CacheClear(cmd.Context(), cacheClearRegion)
	},
}

func init() {
	cacheClearCmd.Flags().StringVar(&cacheClearRegion, "region", "", "Bidding zone to clear (empty clears everything)")
	cacheClearCmd.Flags().BoolVar(&cacheClearYes, "yes", false, "Confirm the deletion")

	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
