package vaultsts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/toolstate-pipeline/interfaces"
)

// Config carries everything needed for one credential exchange. Fields left
// empty by flags are filled from the conventional environment variables.
type Config struct {
	// Address is the Vault server address, e.g. https://vault.example.com:8200.
	Address string

	// RoleID and SecretID authenticate against the AppRole auth backend.
	RoleID   string
	SecretID string

	// STSPath is the role path under the AWS secrets engine, read as
	// aws/sts/<STSPath>.
	STSPath string
}

// FromEnv fills empty fields from VAULT_ADDR, VAULT_ROLE_ID and
// VAULT_SECRET_ID.
func (c Config) FromEnv() Config {
	if c.Address == "" {
		c.Address = os.Getenv("VAULT_ADDR")
	}
	if c.RoleID == "" {
		c.RoleID = os.Getenv("VAULT_ROLE_ID")
	}
	if c.SecretID == "" {
		c.SecretID = os.Getenv("VAULT_SECRET_ID")
	}
	return c
}

// Validate checks that every field required for the exchange is present.
func (c Config) Validate() error {
	if c.Address == "" {
		return errors.New("vault address not configured")
	}
	if c.RoleID == "" || c.SecretID == "" {
		return errors.New("vault role_id and secret_id are required")
	}
	if c.STSPath == "" {
		return errors.New("sts role path not configured")
	}
	return nil
}

// Client performs the two-step credential exchange against Vault: an AppRole
// login for a short-lived client token, then a read of the AWS secrets
// engine for a temporary storage credential triple.
type Client struct {
	vault *api.Client
	log   *slog.Logger
}

// New creates a Vault client for the given server address.
func New(address string, log *slog.Logger) (*Client, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.HttpClient = &http.Client{Timeout: 30 * time.Second}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	return &Client{vault: client, log: log}, nil
}

// Login authenticates with the AppRole backend and installs the returned
// client token on the client for subsequent reads.
func (c *Client) Login(ctx context.Context, roleID, secretID string) error {
	start := time.Now()

	secret, err := c.vault.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
		"role_id":   roleID,
		"secret_id": secretID,
	})
	if err != nil {
		c.log.Error("AppRole login failed", "err", err)
		return fmt.Errorf("approle login: %w", err)
	}

	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		c.log.Error("AppRole login response missing client token")
		return errors.New("approle login: response contains no client token")
	}

	c.vault.SetToken(secret.Auth.ClientToken)

	c.log.Debug("AppRole login succeeded",
		slog.Duration("duration", time.Since(start)),
		slog.Int("lease_seconds", secret.Auth.LeaseDuration))
	return nil
}

// STSCredentials reads a temporary credential triple from the AWS secrets
// engine. Login must have been called first.
func (c *Client) STSCredentials(ctx context.Context, stsPath string) (interfaces.Credentials, error) {
	start := time.Now()
	readPath := "aws/sts/" + strings.TrimPrefix(stsPath, "/")

	secret, err := c.vault.Logical().ReadWithContext(ctx, readPath)
	if err != nil {
		c.log.Error("Failed to read STS credentials",
			slog.String("path", readPath),
			"err", err)
		return interfaces.Credentials{}, fmt.Errorf("read %s: %w", readPath, err)
	}

	if secret == nil || secret.Data == nil {
		return interfaces.Credentials{}, fmt.Errorf("read %s: empty response", readPath)
	}

	creds := interfaces.Credentials{
		AccessKeyID:     stringField(secret.Data, "access_key"),
		SecretAccessKey: stringField(secret.Data, "secret_key"),
		SessionToken:    stringField(secret.Data, "security_token"),
	}
	if err := creds.Validate(); err != nil {
		c.log.Error("STS response missing credential fields",
			slog.String("path", readPath))
		return interfaces.Credentials{}, fmt.Errorf("read %s: %w", readPath, err)
	}

	c.log.Debug("Fetched STS credentials",
		slog.String("path", readPath),
		slog.Duration("duration", time.Since(start)))

	return creds, nil
}

// Fetch runs the full exchange for the given configuration.
func Fetch(ctx context.Context, cfg Config, log *slog.Logger) (interfaces.Credentials, error) {
	if err := cfg.Validate(); err != nil {
		return interfaces.Credentials{}, err
	}

	client, err := New(cfg.Address, log)
	if err != nil {
		return interfaces.Credentials{}, err
	}

	if err := client.Login(ctx, cfg.RoleID, cfg.SecretID); err != nil {
		return interfaces.Credentials{}, err
	}

	return client.STSCredentials(ctx, cfg.STSPath)
}

func stringField(data map[string]interface{}, key string) string {
	v, ok := data[key].(string)
	if !ok {
		return ""
	}
	return v
}
