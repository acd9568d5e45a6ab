package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ruteri/toolstate-pipeline/cmd/flags"
	"github.com/ruteri/toolstate-pipeline/installer"
	"github.com/ruteri/toolstate-pipeline/interfaces"
	"github.com/urfave/cli/v2"
)

var installerFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "tools-url",
		Value: "https://tools.oasis.dev",
		Usage: "base URL the published artifacts are served from",
	},
	&cli.StringFlag{
		Name:  "toolchain",
		Value: "latest",
		Usage: "which toolchain version to install",
	},
	&cli.StringFlag{
		Name:  "prefix",
		Usage: "installation prefix; defaults to ~/.local",
	},
	&cli.BoolFlag{
		Name:  "speedrun",
		Usage: "accept default options for all installed tools",
	},
	&cli.BoolFlag{
		Name:  "force",
		Usage: "replace an existing install",
	},
	&cli.BoolFlag{
		Name:  "no-modify-path",
		Usage: "don't add the toolchain to your PATH",
	},
	&cli.BoolFlag{
		Name:  "no-rust",
		Usage: "don't install Rust, even if it's missing",
	},
	&cli.BoolFlag{
		Name:  "no-node",
		Usage: "don't install Node, even if it's missing",
	},
}

func main() {
	app := &cli.App{
		Name:  "installer",
		Usage: "Install the most recent passing toolchain build",
		Flags: append(installerFlags, flags.LogFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx, "installer")

			ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := installer.CheckPrerequisites(); err != nil {
				return err
			}

			prefix := cCtx.String("prefix")
			if prefix == "" {
				prefix = defaultPrefix()
			}

			opts := installer.Options{
				ToolsURL:     strings.TrimSuffix(cCtx.String("tools-url"), "/"),
				Toolchain:    cCtx.String("toolchain"),
				Prefix:       prefix,
				ConfigDir:    defaultConfigDir(),
				Force:        cCtx.Bool("force"),
				Speedrun:     cCtx.Bool("speedrun"),
				NoModifyPath: cCtx.Bool("no-modify-path"),
				NoRust:       cCtx.Bool("no-rust"),
				NoNode:       cCtx.Bool("no-node"),
			}

			ins, err := installer.New(opts, logger)
			if err != nil {
				return err
			}

			if err := ins.Install(ctx); err != nil {
				return err
			}

			platform, err := interfaces.CurrentPlatform()
			if err != nil {
				return err
			}

			if opts.NoModifyPath {
				fmt.Println("Remember to")
				for _, export := range installer.RequiredExports(platform, prefix) {
					fmt.Println("\t" + export)
				}
			} else if err := installer.ModifyPath(platform, prefix); err != nil {
				return err
			}

			fmt.Println("You're ready to start developing!")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func defaultPrefix() string {
	if xdg := os.Getenv("XDG_DATA_DIR"); xdg != "" {
		return filepath.Dir(xdg)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".local")
}

func defaultConfigDir() string {
	base := os.Getenv("XDG_CONFIG_DIR")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "oasis")
}
