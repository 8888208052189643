package main

import (
	"os"

	"dotdeploy/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
