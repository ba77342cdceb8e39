// Package app wires configuration, storage, services and the HTTP surface
// into the mcpauth command-line application.
package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	httpapi "github.com/aussiebroadwan/mcpauth/internal/auth/http"
	"github.com/aussiebroadwan/mcpauth/internal/auth/service"
	"github.com/aussiebroadwan/mcpauth/pkg/cryptox"
)

// NewRootCmd creates the mcpauth command tree. Running it without a
// subcommand serves.
func NewRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "mcpauth",
		Short: "OAuth 2.0 authorization server for MCP clients",
		Long: `mcpauth is a minimal OAuth 2.0 authorization server for Model Context Protocol
clients. It provides:

- Authorization Code grant with PKCE (S256 and plain)
- Dynamic client registration (RFC 7591)
- Protected resource and authorization server metadata (RFC 9728, RFC 8414)
- A bearer-protected resource and MCP tool endpoint

Settings are read from built-in defaults, an optional YAML file and the
environment, in that order.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, configFile)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"Path to a YAML configuration file (default $"+ConfigFileEnv+")")

	rootCmd.AddCommand(newServeCmd(&configFile))
	rootCmd.AddCommand(newMigrateCmd(&configFile))
	rootCmd.AddCommand(newRegisterClientCmd(&configFile))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the authorization server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, *configFile)
		},
	}
}

func runServe(cmd *cobra.Command, configFile string) error {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return err
	}

	application, err := New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run(cmd.Context())
}

func newMigrateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply store migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(*configFile)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			db, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize %s store: %w", cfg.StoreDriver, err)
			}
			defer func() { _ = db.Close() }()

			if err := db.ApplyMigrations(); err != nil {
				return fmt.Errorf("failed to apply store migrations: %w", err)
			}
			logger.Info("store migrations applied", "driver", cfg.StoreDriver)
			return nil
		},
	}
}

func newRegisterClientCmd(configFile *string) *cobra.Command {
	var req service.RegistrationRequest
	var redirectURI string

	cmd := &cobra.Command{
		Use:   "register-client",
		Short: "Register an OAuth client and print its credentials",
		Long: `Register a confidential OAuth client directly in the store and print the
RFC 7591 client information response. The client_secret is shown only once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(*configFile)
			if err != nil {
				return err
			}

			pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
			if err != nil {
				return fmt.Errorf("failed to load pepper: %w", err)
			}

			db, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize %s store: %w", cfg.StoreDriver, err)
			}
			defer func() { _ = db.Close() }()

			if err := db.ApplyMigrations(); err != nil {
				return fmt.Errorf("failed to apply store migrations: %w", err)
			}

			clients := &service.ClientService{Store: db, Hasher: cryptox.SecretHasher{Pepper: pepper}}
			req.RedirectURIs = []string{redirectURI}
			creds, err := clients.RegisterClient(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to register client: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(httpapi.RegistrationResponse(creds))
		},
	}

	cmd.Flags().StringVar(&req.ClientName, "name", "", "Client name (default \""+service.DefaultClientName+"\")")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "Absolute redirect URI")
	cmd.Flags().StringVar(&req.Scope, "scope", "", "Space-delimited scope")
	_ = cmd.MarkFlagRequired("redirect-uri")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", httpapi.ServiceName, BuildVersion)
		},
	}
}
