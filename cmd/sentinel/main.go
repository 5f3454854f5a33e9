package main

import (
	"os"

	"github.com/dshills/sentinel/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
