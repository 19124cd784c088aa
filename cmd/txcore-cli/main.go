package main

import "wallet-txcore/cmd/txcore-cli/cmd"

func main() {
	cmd.Execute()
}
