// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/VA7DBI/storefrontAPI/auth"
	"github.com/VA7DBI/storefrontAPI/client"
	"github.com/VA7DBI/storefrontAPI/config"
	"github.com/VA7DBI/storefrontAPI/logging"
	"github.com/VA7DBI/storefrontAPI/mockapi"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Authenticated client for the mango and honey storefront API",
	Long: `storefront talks to the storefront REST API with a stored access token.
An expired token is refreshed once from the session cookie and the request
replayed; when refresh fails the stored token is cleared and you must log in.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err = logging.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveMockCmd = &cobra.Command{
	Use:   "serve-mock",
	Short: "Run the in-memory stub API for local development",
	Args:  cobra.NoArgs,
	RunE:  serveMock,
}

// @title           Storefront Stub API
// @version         1.0
// @description     Development stand-in for the mango and honey storefront REST API.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to configuration file (defaults and STOREFRONT_* environment when empty)")

	loginCmd.Flags().String("email", "", "Account email")
	loginCmd.Flags().String("password", "", "Account password (or STOREFRONT_PASSWORD)")
	loginCmd.MarkFlagRequired("email")

	requestCmd.Flags().String("data", "", "Request body, sent as JSON")

	productsCmd.Flags().String("search", "", "Name or variety substring")
	productsCmd.Flags().String("category", "", "mango or honey")
	productsCmd.Flags().Int("page", 0, "Page number")
	productsCmd.Flags().Int("limit", 0, "Page size")

	orderCmd.Flags().Bool("track", false, "Show the delivery history too")
	orderCmd.Flags().Bool("cancel", false, "Cancel the order if still pending")

	checkoutCmd.Flags().String("name", "", "Recipient name")
	checkoutCmd.Flags().String("phone", "", "Recipient phone number")
	checkoutCmd.Flags().String("email", "", "Recipient email")
	checkoutCmd.Flags().String("address", "", "Street address")
	checkoutCmd.Flags().String("city", "", "City")
	checkoutCmd.Flags().String("postal-code", "", "Postal code")
	checkoutCmd.Flags().String("payment", "cod", "Payment method: cod or online")
	checkoutCmd.Flags().String("note", "", "Delivery note")

	cartCmd.AddCommand(cartShowCmd, cartAddCmd, cartSetCmd, cartRemoveCmd, cartClearCmd)
	rootCmd.AddCommand(serveMockCmd, loginCmd, logoutCmd, requestCmd, productsCmd, orderCmd, cartCmd, checkoutCmd)
}

func serveMock(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return mockapi.NewServer(cfg, logger).Run(ctx)
}

// newSession builds a client over the configured token store and cookie
// file. The returned func saves the cookies and releases the store.
func newSession() (*client.Client, func(), error) {
	store, err := auth.NewTokenStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if closer, ok := store.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				logger.Warn("failed to close token store", zap.Error(err))
			}
		}
	}

	jar, err := client.LoadFileJar(cfg.API.CookieFile, cfg.BaseURL())
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	c, err := client.New(cfg, store, client.WithCookieJar(jar), client.WithLogger(logger))
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	finish := func() {
		if err := jar.Save(); err != nil {
			logger.Warn("failed to save session cookies", zap.Error(err))
		}
		closeStore()
	}
	return c, finish, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
