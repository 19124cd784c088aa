package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"wallet-txcore/pkg/wallet/types"
)

var broadcastCmd = &cobra.Command{
	Use:   "broadcast",
	Short: "广播已签名的交易 (Online)",
	Long:  `读取已签名的交易文件 (Signed Tx)，并广播到配置中该链的 RPC 节点。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile, _ := cmd.Flags().GetString("input")
		slug, _ := cmd.Flags().GetString("chain")

		// 1. 读取 Signed Tx
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("读取文件失败: %w", err)
		}
		var signed types.SignedTransaction
		if err := json.Unmarshal(data, &signed); err != nil {
			return fmt.Errorf("解析文件失败: %w", err)
		}
		tx, err := signed.Decode()
		if err != nil {
			return fmt.Errorf("反序列化交易失败: %w", err)
		}

		// 2. 连接节点
		chains, pool, err := openPool()
		if err != nil {
			return err
		}
		defer pool.Close()
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		api, err := pool.EVM(ctx, slug)
		if err != nil {
			return fmt.Errorf("连接失败: %w", err)
		}

		// 3. 广播
		fmt.Printf("正在广播交易 Hash: %s ...\n", tx.Hash().Hex())
		if err := api.SendTransaction(ctx, tx); err != nil {
			return fmt.Errorf("❌ 广播失败: %w", err)
		}
		fmt.Printf("✅ 广播成功!\n")
		if info, ok := chains.Chain(slug); ok {
			if link := info.ExplorerLink(tx.Hash().Hex()); link != "" {
				fmt.Printf("Tx URL: %s\n", link)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(broadcastCmd)
	broadcastCmd.Flags().StringP("input", "i", "signed.json", "已签名的交易文件")
	broadcastCmd.Flags().String("chain", "ethereum", "链 slug")
}
