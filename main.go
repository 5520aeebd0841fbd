package main

import (
	"os"

	"github.com/alamshoaib134/git-secret-scanner/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
