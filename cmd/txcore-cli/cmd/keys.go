package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/keyring"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "管理 keystore 账户",
}

var keysNewCmd = &cobra.Command{
	Use:   "new",
	Short: "生成新助记词并加密保存账户",
	RunE: func(cmd *cobra.Command, args []string) error {
		mnemonic, err := keyring.GenerateMnemonic()
		if err != nil {
			return fmt.Errorf("生成助记词失败: %w", err)
		}
		fmt.Println("请设置一个强密码来保护您的助记词。")
		password, err := readNewPassword()
		if err != nil {
			return err
		}
		pair, err := addAccount(cmd, mnemonic, password)
		if err != nil {
			return err
		}
		fmt.Println("---------------------------------------------------")
		fmt.Printf("助记词 (Mnemonic): \n%s\n", mnemonic)
		fmt.Println("---------------------------------------------------")
		fmt.Printf("地址: %s (%s)\n", pair.Address(), pair.Ledger())
		fmt.Println("请妥善保管您的助记词！任何拥有助记词的人都可以控制该账户的所有资产。")
		return nil
	},
}

var keysImportCmd = &cobra.Command{
	Use:   "import",
	Short: "导入已有助记词",
	RunE: func(cmd *cobra.Command, args []string) error {
		mnemonic, err := readSecret("输入助记词: ")
		if err != nil {
			return err
		}
		password, err := readNewPassword()
		if err != nil {
			return err
		}
		pair, err := addAccount(cmd, strings.Join(strings.Fields(mnemonic), " "), password)
		if err != nil {
			return err
		}
		fmt.Printf("✅ 导入成功: %s (%s)\n", pair.Address(), pair.Ledger())
		return nil
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出 keystore 中的账户",
	RunE: func(cmd *cobra.Command, args []string) error {
		kr, err := openKeyring()
		if err != nil {
			return err
		}
		for _, addr := range kr.Addresses() {
			pair, _ := kr.GetPair(addr)
			meta := pair.Meta()
			fmt.Printf("%-10s %-50s %s #%d\n", pair.Ledger(), pair.Address(), meta.Name, meta.AccountIndex)
		}
		return nil
	},
}

func addAccount(cmd *cobra.Command, mnemonic, password string) (keyring.Pair, error) {
	name, _ := cmd.Flags().GetString("name")
	ledger, _ := cmd.Flags().GetString("ledger")
	index, _ := cmd.Flags().GetUint32("index")
	if !chain.LedgerModel(ledger).Valid() {
		return nil, fmt.Errorf("未知账本类型 %q (evm 或 substrate)", ledger)
	}
	if keystoreDir == "" {
		return nil, fmt.Errorf("未指定 keystore 目录")
	}
	kr, err := openKeyring()
	if err != nil {
		return nil, err
	}
	return kr.AddMnemonic(name, mnemonic, password, chain.LedgerModel(ledger), index)
}

func init() {
	for _, c := range []*cobra.Command{keysNewCmd, keysImportCmd} {
		c.Flags().String("name", "default", "账户名称")
		c.Flags().String("ledger", string(chain.LedgerEVM), "账本类型: evm 或 substrate")
		c.Flags().Uint32("index", 0, "派生索引")
	}
	keysCmd.AddCommand(keysNewCmd, keysImportCmd, keysListCmd)
	rootCmd.AddCommand(keysCmd)
}
