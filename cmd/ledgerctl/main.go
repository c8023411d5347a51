// Command ledgerctl inspects and repairs a ledgerly SQLite database.
package main

import (
	"context"
	"os"

	"github.com/pterm/pterm"

	"ledgerly/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	pterm.Error.Prefix = pterm.Prefix{
		Text:  " ERROR ",
		Style: pterm.NewStyle(pterm.BgLightRed, pterm.FgBlack),
	}

	if err := execute(context.Background(), os.Args[1:]); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
