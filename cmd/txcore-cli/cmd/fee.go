package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wallet-txcore/internal/fee"
)

var feeCmd = &cobra.Command{
	Use:   "fee",
	Short: "查询 EVM 链当前手续费报价",
	RunE: func(cmd *cobra.Command, args []string) error {
		slug, _ := cmd.Flags().GetString("chain")

		chains, pool, err := openPool()
		if err != nil {
			return err
		}
		defer pool.Close()
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		api, err := pool.EVM(ctx, slug)
		if err != nil {
			return err
		}

		est := fee.NewEstimator(chains, nil, fee.Config{
			BusyBaseFeeGwei: cfg.Fee.BusyBaseFeeGwei,
			BusyUtilization: cfg.Fee.BusyUtilization,
		})
		quote, err := est.Quote(ctx, slug, api)
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(quote, "", "  ")
		fmt.Println(string(out))
		if quote.BusyNetwork {
			fmt.Println("⚠️  网络繁忙, 手续费可能偏高")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feeCmd)
	feeCmd.Flags().String("chain", "ethereum", "链 slug")
}
