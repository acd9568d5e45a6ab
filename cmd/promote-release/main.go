package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/toolstate-pipeline/cmd/flags"
	"github.com/ruteri/toolstate-pipeline/interfaces"
	"github.com/ruteri/toolstate-pipeline/release"
	"github.com/ruteri/toolstate-pipeline/storage"
	"github.com/ruteri/toolstate-pipeline/vaultsts"
	"github.com/urfave/cli/v2"
)

var promoteFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "yes",
		Usage: "skip the interactive confirmation (for scheduled runs)",
	},
	&cli.StringFlag{
		Name:  "label",
		Usage: "release label override; defaults to <YY.WW> for today",
	},
	&cli.BoolFlag{
		Name:  "force",
		Usage: "overwrite an existing release prefix",
	},
	flags.StoreURIFlag,
}

// promote-release snapshots every platform's current channel into a dated
// release prefix. Scheduled weekly with --yes; interactive runs must type
// the confirmation phrase.
func main() {
	app := &cli.App{
		Name:  "promote-release",
		Usage: "Copy current artifacts into a dated release prefix",
		Flags: append(append(promoteFlags, flags.VaultFlags...), flags.LogFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx, "promote-release")

			ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !cCtx.Bool("yes") && !release.Confirm(os.Stdin, os.Stdout) {
				// Declined confirmation is a successful no-op.
				return nil
			}

			label := cCtx.String("label")
			if label == "" {
				label = release.Label(time.Now())
			}

			var creds interfaces.Credentials
			var err error
			if vaultCfg := flags.VaultConfig(cCtx); vaultCfg.Address != "" {
				creds, err = vaultsts.Fetch(ctx, vaultCfg, logger)
				if err != nil {
					logger.Error("Credential exchange failed", "err", err)
					return err
				}
			}

			store, err := storage.NewFactory(logger).StoreFor(cCtx.String("store-uri"), creds)
			if err != nil {
				logger.Error("Failed to create artifact store", "err", err)
				return err
			}

			return release.NewPromoter(store, logger).Promote(ctx, label, cCtx.Bool("force"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
