package cli

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateRegion string
	simulatePrice  float64
	simulateHours  int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a fabricated negative-price alert to verify the channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		price := decimal.NewFromFloat(simulatePrice)
		return getApp().SimulateAlert(cmd.Context(), simulateRegion, price, simulateHours)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateRegion, "region", "SE3", "Bidding zone to name in the alert")
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", -10, "Lowest price in EUR/MWh")
	simulateCmd.Flags().IntVar(&simulateHours, "hours", 1, "Length of the simulated run")
}
