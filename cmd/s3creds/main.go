package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ruteri/toolstate-pipeline/cmd/flags"
	"github.com/ruteri/toolstate-pipeline/interfaces"
	"github.com/ruteri/toolstate-pipeline/vaultsts"
	"github.com/urfave/cli/v2"
)

// s3creds exchanges an AppRole role/secret pair for a temporary S3 credential
// triple. `print` writes the triple tab-separated for scripts that read it
// from stdout; `env` writes shell export statements for `eval`. Two explicit
// subcommands replace the sourced-vs-executed mode detection of the old shell
// script.
func main() {
	app := &cli.App{
		Name:  "s3creds",
		Usage: "Fetch temporary S3 credentials through Vault",
		Flags: append(flags.VaultFlags, flags.LogFlags...),
		Commands: []*cli.Command{
			{
				Name:  "print",
				Usage: "Write the credential triple tab-separated to stdout",
				Action: func(cCtx *cli.Context) error {
					creds, err := fetch(cCtx)
					if err != nil {
						return err
					}
					fmt.Println(creds.TSV())
					return nil
				},
			},
			{
				Name:  "env",
				Usage: "Write export statements for eval in a shell",
				Action: func(cCtx *cli.Context) error {
					creds, err := fetch(cCtx)
					if err != nil {
						return err
					}
					fmt.Println(strings.Join(creds.ExportStatements(), "\n"))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func fetch(cCtx *cli.Context) (interfaces.Credentials, error) {
	logger := flags.SetupLogger(cCtx, "s3creds")
	return vaultsts.Fetch(cCtx.Context, flags.VaultConfig(cCtx), logger)
}
