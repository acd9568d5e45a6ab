package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/toolstate-pipeline/common"
	"github.com/ruteri/toolstate-pipeline/httpserver"
	"github.com/ruteri/toolstate-pipeline/vaultsts"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context, service string) (log *slog.Logger) {
	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   cCtx.Bool(LogDebugFlag.Name),
		JSON:    cCtx.Bool(LogJsonFlag.Name),
		Service: service,
		Version: common.Version,
	})

	if cCtx.Bool(LogUidFlag.Name) {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// VaultConfig collects the credential-exchange flags, falling back to the
// VAULT_* environment variables for anything left unset.
func VaultConfig(cCtx *cli.Context) vaultsts.Config {
	return vaultsts.Config{
		Address:  cCtx.String(VaultAddrFlag.Name),
		RoleID:   cCtx.String(VaultRoleIDFlag.Name),
		SecretID: cCtx.String(VaultSecretIDFlag.Name),
		STSPath:  cCtx.String(STSPathFlag.Name),
	}.FromEnv()
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var StoreURIFlag = &cli.StringFlag{
	Name:  "store-uri",
	Value: "s3://tools.oasis.dev/?region=us-east-1",
	Usage: "artifact store location URI (s3:// or file://)",
}

var VaultAddrFlag = &cli.StringFlag{
	Name:    "vault-addr",
	Usage:   "Vault server address",
	EnvVars: []string{"VAULT_ADDR"},
}
var VaultRoleIDFlag = &cli.StringFlag{
	Name:    "vault-role-id",
	Usage:   "AppRole role_id for the credential exchange",
	EnvVars: []string{"VAULT_ROLE_ID"},
}
var VaultSecretIDFlag = &cli.StringFlag{
	Name:    "vault-secret-id",
	Usage:   "AppRole secret_id for the credential exchange",
	EnvVars: []string{"VAULT_SECRET_ID"},
}
var STSPathFlag = &cli.StringFlag{
	Name:  "sts-path",
	Value: "toolstate",
	Usage: "role path under the Vault AWS secrets engine (aws/sts/<path>)",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}

var VaultFlags = []cli.Flag{
	VaultAddrFlag,
	VaultRoleIDFlag,
	VaultSecretIDFlag,
	STSPathFlag,
}
