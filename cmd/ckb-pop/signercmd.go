package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ckb-pop/popcli/internal/config"
	"github.com/ckb-pop/popcli/internal/signer"
)

func newSignerCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signer",
		Short: "Manage external signer configuration",
	}
	cmd.AddCommand(
		newSignerSetCmd(opts),
		newSignerConnectCmd(opts),
		newSignerStatusCmd(opts),
	)
	return cmd
}

func newSignerSetCmd(opts *rootOptions) *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the signing method",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := signer.ParseMethod(method)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.SignerMethod = string(m)
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Println("Signer method set to:", m)
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "", "signing method (browser, ledger, passkey, walletconnect)")
	_ = cmd.MarkFlagRequired("method")
	return cmd
}

// newSignerConnectCmd connects the configured wallet and persists the
// returned address.
func newSignerConnectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect a wallet and save its address",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			method, err := signer.ParseMethod(cfg.SignerMethod)
			if err != nil {
				return err
			}
			if method != signer.MethodBrowser {
				return fmt.Errorf("%s: %w", method, signer.ErrUnsupported)
			}

			fmt.Println("Opening browser to connect wallet...")
			address, err := signer.ConnectWallet(cmd.Context(), cfg.Network, approvalConfig(cfg), opts.log.WithComponent("signer"))
			if err != nil {
				return err
			}
			fmt.Println("Connected:", address)

			// Persist against the file's own state, not the flag-merged view.
			saved, err := config.Load()
			if err != nil {
				return err
			}
			saved.Address = address
			if err := saved.Save(); err != nil {
				return err
			}
			fmt.Println("Address saved to config.")
			return nil
		},
	}
}

func newSignerStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active signer configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			address := cfg.Address
			if address == "" {
				address = "not connected"
			}
			fmt.Println("Signer")
			fmt.Println("  Method: ", cfg.SignerMethod)
			fmt.Println("  Address:", address)
			fmt.Println("  Network:", cfg.Network)
			fmt.Println("  RPC:    ", cfg.RPCURL())
			if cfg.RegistryURL != "" {
				fmt.Println("  Registry:", cfg.RegistryURL)
			}
			return nil
		},
	}
}
