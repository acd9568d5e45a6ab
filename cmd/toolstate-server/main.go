package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/toolstate-pipeline/cmd/flags"
	"github.com/ruteri/toolstate-pipeline/httpserver"
	"github.com/ruteri/toolstate-pipeline/interfaces"
	"github.com/ruteri/toolstate-pipeline/storage"
	"github.com/urfave/cli/v2"
)

var serverFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for the status API",
	},
	flags.StoreURIFlag,
	flags.MetricsAddrFlag,
	flags.PprofFlag,
	flags.DrainSecondsFlag,
}

// toolstate-server serves the read-only status API over the artifact store.
// It never writes, so it needs no credential exchange.
func main() {
	app := &cli.App{
		Name:  "toolstate-server",
		Usage: "Serve the toolstate status API",
		Flags: append(serverFlags, flags.LogFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx, "toolstate-server")

			store, err := storage.NewFactory(logger).StoreFor(cCtx.String("store-uri"), interfaces.Credentials{})
			if err != nil {
				logger.Error("Failed to create artifact store", "err", err)
				return err
			}

			handler := httpserver.NewHandler(store, logger)

			server, err := httpserver.New(flags.ConfigureServer(cCtx, logger, cCtx.String("listen-addr")), handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
