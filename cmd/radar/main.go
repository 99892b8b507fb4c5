package main

import (
	"os"

	"github.com/krisalay/package-radar/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
