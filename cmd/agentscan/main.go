package main

import (
	"errors"
	"os"

	"github.com/0x6d61/agentscan/internal/cli"
)

// ビルド時に ldflags で設定する。
var version = "dev"

func main() {
	if err := cli.NewRootCmd(version).Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
