package main

import "github.com/mj1618/a11y-chain/cmd"

func main() {
	cmd.Execute()
}
