package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version      kong.VersionFlag `short:"v" help:"Show version"`
	Server       ServerCmd        `cmd:"" help:"Run the draft server"`
	ValidateList ValidateListCmd  `cmd:"" name:"validate-list" help:"Validate a custom card list file"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("packdraft"),
		kong.Description("Multiplayer booster draft server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
