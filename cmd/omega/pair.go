package main

import (
	"fmt"
	"io"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"github.com/omegacore/omega/internal/auth"
	"github.com/omegacore/omega/internal/config"
)

// pairingTokenExpiry bounds how long a pairing token is valid: long
// enough to scan a QR code, short enough that a leaked token is not a
// standing credential.
const pairingTokenExpiry = 10 * time.Minute

func buildPairCmd() *cobra.Command {
	var (
		configPath string
		device     string
		qr         bool
	)

	cmd := &cobra.Command{
		Use:   "pair <channel>",
		Short: "Issue a short-lived pairing token for a channel handshake",
		Long: `pair signs a JWT pairing token scoped to the given channel (e.g.
"whatsapp"), the same mechanism the WHATSAPP_QR marker uses internally
when a conversation asks the agent to re-pair. The token proves the
bearer was handed it by this agent's own config, not an identity — it
is not a user credential.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPair(configPath, args[0], device, qr, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config.toml")
	cmd.Flags().StringVar(&device, "device", "", "optional device identifier to embed in the token")
	cmd.Flags().BoolVar(&qr, "qr", false, "render the token as a QR code instead of printing it")
	return cmd
}

func runPair(configPath, channel, device string, qr bool, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured; run `omega init` or set one")
	}

	svc := auth.NewService(auth.Config{JWTSecret: cfg.Auth.JWTSecret, TokenExpiry: pairingTokenExpiry})
	token, err := svc.IssuePairingToken(channel, device)
	if err != nil {
		return fmt.Errorf("issue pairing token: %w", err)
	}

	if qr {
		qrterminal.GenerateHalfBlock(token, qrterminal.L, out)
		return nil
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
