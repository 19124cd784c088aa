package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/chainapi"
	"wallet-txcore/internal/keyring"
	"wallet-txcore/pkg/config"
	"wallet-txcore/pkg/keystore"
	"wallet-txcore/pkg/logger"
)

var (
	cfgFile     string
	keystoreDir string
	cfg         config.Config
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "txcore-cli",
	Short: "多链交易核心命令行工具",
	Long: `管理本地 keystore 账户, 离线构造/签名/广播 EVM 交易,
查询手续费报价以及生成离线签名二维码。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return err
		}
		if keystoreDir == "" {
			keystoreDir = cfg.Keyring.KeystoreDir
		}
		logger.Init(cfg.App.Env)
		return nil
	},
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径 (默认 ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&keystoreDir, "keystore", "", "keystore 目录 (默认取配置 keyring.keystore_dir)")
}

func openKeyring() (*keyring.Keyring, error) {
	kr := keyring.New(keystoreDir, keystore.StandardScryptN)
	if err := kr.Load(); err != nil {
		return nil, err
	}
	return kr, nil
}

func openPool() (*chain.Registry, *chainapi.Pool, error) {
	chains, err := chain.NewRegistryFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	return chains, chainapi.NewPool(chains), nil
}

func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("读取输入失败: %w", err)
	}
	return string(b), nil
}

// readNewPassword 读取两次并校验一致
func readNewPassword() (string, error) {
	password, err := readSecret("输入密码: ")
	if err != nil {
		return "", err
	}
	confirm, err := readSecret("确认密码: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", fmt.Errorf("两次输入的密码不一致")
	}
	if len(password) < 6 {
		return "", fmt.Errorf("密码长度至少需要 6 位")
	}
	return password, nil
}
