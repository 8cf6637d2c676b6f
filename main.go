package main

import "github.com/4rdii/transaction-debugger-agent/cmd"

func main() {
	cmd.Execute()
}
