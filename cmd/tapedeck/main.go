package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/linuxmatters/tapedeck/internal/cli"
	"github.com/linuxmatters/tapedeck/internal/formats"
	"github.com/linuxmatters/tapedeck/internal/logger"
)

// version is set via ldflags at build time
// Local dev builds: "dev"
// Release builds: git tag (e.g. "v0.1.0")
var version = "dev"

// versionFlag prints the version and exits before any command runs
type versionFlag bool

func (v versionFlag) BeforeReset(app *kong.Kong) error {
	cli.PrintVersion(version)
	app.Exit(0)
	return nil
}

var CLI struct {
	Verbose bool        `short:"v" help:"Log every block and sync to stderr"`
	Version versionFlag `help:"Show version information"`

	Encode  encodeCmd  `cmd:"" help:"Write a binary file as tape audio (WAV or raw 8-bit PCM)"`
	Decode  decodeCmd  `cmd:"" help:"Read the files stored in tape recordings"`
	Play    playCmd    `cmd:"" help:"Encode a binary file and play it through the sound card"`
	Analyze analyzeCmd `cmd:"" help:"Show levels, carriers and the half-period histogram of a recording"`
	Formats formatsCmd `cmd:"" help:"List the supported tape formats"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("tapedeck"),
		kong.Description("Turn binary files into cassette tape audio for vintage home computers, and back again."),
		kong.Vars{
			"version": version,
			"formats": strings.Join(formats.Names(), ","),
		},
		kong.UsageOnError(),
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if CLI.Verbose {
		logger.SetEcho(os.Stderr, logger.Debug, true)
	}

	var err error
	switch ctx.Command() {
	case "encode <input> <output>":
		err = CLI.Encode.run()
	case "decode <inputs>":
		err = CLI.Decode.run()
	case "play <input>":
		err = CLI.Play.run()
	case "analyze <input>":
		err = CLI.Analyze.run()
	case "formats":
		CLI.Formats.run()
	default:
		err = fmt.Errorf("unknown command %q", ctx.Command())
	}

	if err != nil {
		cli.PrintError(err.Error())
		if !CLI.Verbose {
			logger.Tail(os.Stderr, 10)
		}
		os.Exit(1)
	}
}

type formatsCmd struct{}

func (c *formatsCmd) run() {
	cli.PrintBanner()
	cli.PrintSection("Formats")
	for _, f := range formats.All() {
		cli.PrintInfo(fmt.Sprintf("%-9s", f.Name), f.Description)
	}
	fmt.Println()
}
