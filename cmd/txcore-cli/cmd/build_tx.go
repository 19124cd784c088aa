package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/chainapi"
	"wallet-txcore/internal/dialect"
	"wallet-txcore/internal/fee"
	"wallet-txcore/pkg/wallet/types"
)

// buildTxCmd 在线端构造交易, 输出给离线签名端
var buildTxCmd = &cobra.Command{
	Use:   "build-tx",
	Short: "构造未签名 EVM 交易 (Online)",
	Long:  `查询 nonce、gas 与手续费报价, 输出 unsigned.json 供离线签名。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		slug, _ := cmd.Flags().GetString("chain")
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		amount, _ := cmd.Flags().GetString("amount")
		assetSlug, _ := cmd.Flags().GetString("asset")
		data, _ := cmd.Flags().GetString("data")
		index, _ := cmd.Flags().GetUint32("index")
		outputFile, _ := cmd.Flags().GetString("output")

		chains, pool, err := openPool()
		if err != nil {
			return err
		}
		defer pool.Close()
		info, ok := chains.Chain(slug)
		if !ok || !info.IsEVM() {
			return fmt.Errorf("未知的 EVM 链 %s", slug)
		}

		value, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			return fmt.Errorf("金额格式错误: %s", amount)
		}
		var call *dialect.EVMCall
		if assetSlug != "" {
			asset, ok := chains.Asset(assetSlug)
			if !ok || asset.OriginChain != slug {
				return fmt.Errorf("链 %s 上没有资产 %s", slug, assetSlug)
			}
			if call, err = dialect.BuildEVMTransfer(asset, from, to, value); err != nil {
				return err
			}
		} else {
			if !common.IsHexAddress(to) {
				return fmt.Errorf("接收地址格式错误: %s", to)
			}
			call = &dialect.EVMCall{To: common.HexToAddress(to), Value: value}
			if data != "" {
				if call.Data, err = hexutil.Decode(data); err != nil {
					return fmt.Errorf("data 格式错误: %w", err)
				}
			}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		api, err := pool.EVM(ctx, slug)
		if err != nil {
			return err
		}
		est := fee.NewEstimator(chains, nil, fee.Config{
			BusyBaseFeeGwei: cfg.Fee.BusyBaseFeeGwei,
			BusyUtilization: cfg.Fee.BusyUtilization,
		})
		utx, err := buildUnsigned(ctx, est, api, info, from, call, index)
		if err != nil {
			return err
		}

		out, _ := json.MarshalIndent(utx, "", "  ")
		if err := os.WriteFile(outputFile, out, 0644); err != nil {
			return fmt.Errorf("保存失败: %w", err)
		}
		fmt.Printf("✅ 未签名交易已构造!\n文件: %s\n", outputFile)
		return nil
	},
}

// buildUnsigned fills nonce, gas and fee fields for call.
func buildUnsigned(ctx context.Context, est *fee.Estimator, api chainapi.EVMClient, info *chain.Info,
	from string, call *dialect.EVMCall, index uint32) (*types.UnsignedTransaction, error) {
	if !common.IsHexAddress(from) {
		return nil, fmt.Errorf("发送地址格式错误: %s", from)
	}
	sender := common.HexToAddress(from)

	nonce, err := api.PendingNonceAt(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("查询 nonce 失败: %w", err)
	}
	gas, err := api.EstimateGas(ctx, ethereum.CallMsg{From: sender, To: &call.To, Value: call.Value, Data: call.Data})
	if err != nil {
		return nil, fmt.Errorf("估算 gas 失败: %w", err)
	}
	quote, err := est.Quote(ctx, info.Slug, api)
	if err != nil {
		return nil, fmt.Errorf("查询手续费失败: %w", err)
	}

	utx := &types.UnsignedTransaction{
		Chain:        info.Slug,
		From:         sender.Hex(),
		To:           call.To.Hex(),
		Amount:       "0",
		Nonce:        nonce,
		GasLimit:     gas,
		AccountIndex: index,
		ChainID:      info.EVMChainID,
	}
	if call.Value != nil {
		utx.Amount = call.Value.String()
	}
	if len(call.Data) > 0 {
		utx.Data = hexutil.Encode(call.Data)
	}
	if quote.IsDynamic() {
		utx.MaxFeePerGas = quote.MaxFeePerGas.String()
		utx.MaxPriorityFeePerGas = quote.MaxPriorityFeePerGas.String()
	} else {
		utx.GasPrice = quote.GasPrice.String()
	}
	return utx, nil
}

func init() {
	rootCmd.AddCommand(buildTxCmd)

	buildTxCmd.Flags().String("chain", "ethereum", "链 slug")
	buildTxCmd.Flags().String("from", "", "发送方地址")
	buildTxCmd.Flags().String("to", "", "接收方地址")
	buildTxCmd.Flags().String("amount", "0", "金额 (最小单位)")
	buildTxCmd.Flags().String("asset", "", "资产 slug, 设置时构造代币转账")
	buildTxCmd.Flags().String("data", "", "合约调用数据 (0x 十六进制)")
	buildTxCmd.Flags().Uint32("index", 0, "签名端派生索引")
	buildTxCmd.Flags().StringP("output", "o", "unsigned.json", "输出文件")

	buildTxCmd.MarkFlagRequired("from")
	buildTxCmd.MarkFlagRequired("to")
}
