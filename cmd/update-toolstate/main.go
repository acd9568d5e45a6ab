package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ruteri/toolstate-pipeline/cmd/flags"
	"github.com/ruteri/toolstate-pipeline/interfaces"
	"github.com/ruteri/toolstate-pipeline/storage"
	"github.com/ruteri/toolstate-pipeline/toolstate"
	"github.com/ruteri/toolstate-pipeline/vaultsts"
	"github.com/urfave/cli/v2"
)

var updateFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "config",
		Value: "config.yml",
		Usage: "tools configuration file",
	},
	&cli.StringFlag{
		Name:  "work-dir",
		Value: "tools",
		Usage: "directory for tool checkouts and built binaries",
	},
	flags.StoreURIFlag,
}

// update-toolstate runs one toolchain update round for the platform it runs
// on. It is scheduled every three hours per platform; rounds are idempotent,
// so overlapping or rerun jobs converge.
func main() {
	app := &cli.App{
		Name:  "update-toolstate",
		Usage: "Build, publish, and record the latest toolchain versions",
		Flags: append(append(updateFlags, flags.VaultFlags...), flags.LogFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx, "update-toolstate")

			ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			platform, err := interfaces.CurrentPlatform()
			if err != nil {
				logger.Error("Unsupported platform", "err", err)
				return err
			}

			cfg, err := toolstate.LoadConfig(cCtx.String("config"))
			if err != nil {
				logger.Error("Failed to load config", "err", err)
				return err
			}

			// The update round writes to the store, so the credential
			// exchange is mandatory for s3 locations. File stores (local
			// runs) need none.
			var creds interfaces.Credentials
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

			workDir := cCtx.String("work-dir")
			binDir := filepath.Join(workDir, "bin")
			run := toolstate.ExecRun(binDir)

			builder := toolstate.NewBuilder(workDir, binDir, run, logger)
			syncer := toolstate.NewSyncer(store, platform, builder, logger)
			updater := toolstate.NewUpdater(cfg, store, builder, syncer, run, platform, logger)

			return updater.Update(ctx)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
