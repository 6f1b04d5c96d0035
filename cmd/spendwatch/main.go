package main

import "github.com/yapay-ai/spendwatch/internal/cli"

func main() {
	cli.Execute()
}
