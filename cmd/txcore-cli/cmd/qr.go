package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"wallet-txcore/pkg/wallet/types"
)

// qrCmd 在终端显示离线签名载荷, 供气隙设备扫描
var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "以二维码显示待签名载荷",
	Long: `读取签名信封 (--input) 或直接从十六进制载荷 (--payload) 生成信封,
校验摘要后在终端绘制二维码。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile, _ := cmd.Flags().GetString("input")
		payload, _ := cmd.Flags().GetString("payload")
		slug, _ := cmd.Flags().GetString("chain")
		addr, _ := cmd.Flags().GetString("address")
		png, _ := cmd.Flags().GetString("png")

		env, err := loadEnvelope(inputFile, payload, slug, addr)
		if err != nil {
			return err
		}
		code, err := envelopeQR(env)
		if err != nil {
			return err
		}
		fmt.Println(code.ToSmallString(false))
		fmt.Printf("Session: %s\nDigest:  %s\n", env.ID, env.Digest)
		if png != "" {
			if err := code.WriteFile(256, png); err != nil {
				return fmt.Errorf("保存二维码失败: %w", err)
			}
			fmt.Printf("已保存到: %s\n", png)
		}
		return nil
	},
}

func loadEnvelope(inputFile, payload, slug, addr string) (types.SigningEnvelope, error) {
	var env types.SigningEnvelope
	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return env, fmt.Errorf("读取文件失败: %w", err)
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return env, fmt.Errorf("解析信封失败: %w", err)
		}
		return env, nil
	}
	if payload == "" {
		return env, fmt.Errorf("需要 --input 或 --payload")
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(payload, "0x"))
	if err != nil {
		return env, fmt.Errorf("载荷格式错误: %w", err)
	}
	return types.NewSigningEnvelope(uuid.NewString(), slug, addr, raw), nil
}

// envelopeQR checks the digest before drawing the envelope.
func envelopeQR(env types.SigningEnvelope) (*qrcode.QRCode, error) {
	if _, err := env.Bytes(); err != nil {
		return nil, err
	}
	content, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return qrcode.New(string(content), qrcode.Medium)
}

func init() {
	rootCmd.AddCommand(qrCmd)
	qrCmd.Flags().StringP("input", "i", "", "签名信封 JSON 文件")
	qrCmd.Flags().String("payload", "", "待签名载荷 (十六进制)")
	qrCmd.Flags().String("chain", "", "链 slug")
	qrCmd.Flags().String("address", "", "签名账户")
	qrCmd.Flags().String("png", "", "同时保存为 PNG 文件")
}
