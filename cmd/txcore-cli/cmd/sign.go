package cmd

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/keyring"
	"wallet-txcore/pkg/address"
	"wallet-txcore/pkg/wallet/types"
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "离线签名交易 (Offline Signing)",
	Long:  `读取未签名的交易 JSON 文件，使用 keystore 账户签名，并输出已签名的交易 (Raw Tx)。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile, _ := cmd.Flags().GetString("input")
		outputFile, _ := cmd.Flags().GetString("output")

		// 1. 读取未签名交易
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("读取输入文件失败: %w", err)
		}
		var utx types.UnsignedTransaction
		if err := json.Unmarshal(data, &utx); err != nil {
			return fmt.Errorf("解析交易文件失败: %w", err)
		}

		// 显示交易详情供用户确认 (Verify on Screen)
		fmt.Println("\n================ 待签名交易 ================")
		fmt.Printf("Chain:      %s (ID: %d)\n", utx.Chain, utx.ChainID)
		fmt.Printf("From:       %s\n", utx.From)
		fmt.Printf("To:         %s\n", utx.To)
		fmt.Printf("Amount:     %s\n", utx.Amount)
		fmt.Printf("Nonce:      %d\n", utx.Nonce)
		if utx.MaxFeePerGas != "" {
			fmt.Printf("MaxFee:     %s (tip %s)\n", utx.MaxFeePerGas, utx.MaxPriorityFeePerGas)
		} else {
			fmt.Printf("GasPrice:   %s\n", utx.GasPrice)
		}
		fmt.Println("============================================")

		// 2. 加载账户并解锁
		kr, err := openKeyring()
		if err != nil {
			return err
		}
		pair, ok := kr.GetPair(utx.From)
		if !ok {
			return fmt.Errorf("keystore 中没有账户 %s", utx.From)
		}
		password, err := readSecret("请输入 keystore 密码以确认签名: ")
		if err != nil {
			return err
		}

		signed, err := signUnsigned(pair, password, &utx)
		if err != nil {
			return err
		}

		out, _ := json.MarshalIndent(signed, "", "  ")
		if err := os.WriteFile(outputFile, out, 0644); err != nil {
			return fmt.Errorf("保存结果失败: %w", err)
		}
		fmt.Printf("\n✅ 签名成功!\n")
		fmt.Printf("TxHash: %s\n", signed.TxHash)
		fmt.Printf("已保存到: %s\n", outputFile)
		return nil
	},
}

// signUnsigned unlocks pair for one signature and locks it again.
func signUnsigned(pair keyring.Pair, password string, utx *types.UnsignedTransaction) (*types.SignedTransaction, error) {
	if pair.Ledger() != chain.LedgerEVM {
		return nil, fmt.Errorf("账户 %s 不是 EVM 账户", pair.Address())
	}
	if !address.Equal(pair.Address(), utx.From) {
		return nil, fmt.Errorf("账户 %s 与交易发送方 %s 不一致", pair.Address(), utx.From)
	}
	tx, err := utx.Build()
	if err != nil {
		return nil, err
	}
	if err := pair.Unlock(password); err != nil {
		return nil, fmt.Errorf("解锁失败 (密码错误?): %w", err)
	}
	defer pair.Lock()

	signedTx, err := pair.SignEVMTx(tx, big.NewInt(utx.ChainID))
	if err != nil {
		return nil, fmt.Errorf("签名失败: %w", err)
	}
	return types.NewSignedTransaction(signedTx)
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringP("input", "i", "unsigned.json", "未签名的交易文件路径")
	signCmd.Flags().StringP("output", "o", "signed.json", "签名后的输出文件路径")
}
