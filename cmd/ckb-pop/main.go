// ckb-pop is a keyless CLI for the proof-of-presence protocol on Nervos
// CKB: event creators anchor events and open attendance windows, attendees
// capture rotating codes and mint soulbound badges. All signing happens in
// external wallets; no key material ever touches this process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ckb-pop/popcli/internal/chain"
	"github.com/ckb-pop/popcli/internal/config"
	"github.com/ckb-pop/popcli/internal/contracts"
	"github.com/ckb-pop/popcli/internal/pipeline"
	"github.com/ckb-pop/popcli/internal/registry"
	"github.com/ckb-pop/popcli/internal/signer"
	"github.com/ckb-pop/popcli/pkg/logger"
)

func main() {
	// Best-effort: local overrides for development setups.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// rootOptions carries the global flag overrides applied on top of the
// persisted configuration.
type rootOptions struct {
	network     string
	rpcURL      string
	signerName  string
	address     string
	registryURL string

	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{log: logger.NewDefault("ckb-pop")}

	cmd := &cobra.Command{
		Use:           "ckb-pop",
		Short:         "Keyless CLI for the PoP protocol on Nervos CKB",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.network, "network", "", "network to connect to (testnet or mainnet)")
	flags.StringVar(&opts.rpcURL, "rpc-url", "", "override the node RPC endpoint")
	flags.StringVar(&opts.signerName, "signer", "", "override the signing method (browser, ledger, passkey, walletconnect)")
	flags.StringVar(&opts.address, "address", "", "override the active CKB address")
	flags.StringVar(&opts.registryURL, "registry-url", "", "override the event registry endpoint")

	cmd.AddCommand(
		newEventCmd(opts),
		newAttendCmd(opts),
		newBadgeCmd(opts),
		newSignerCmd(opts),
		newTxCmd(opts),
	)
	return cmd
}

// loadConfig merges the persisted configuration with flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.network != "" {
		cfg.Network = o.network
	}
	if o.signerName != "" {
		cfg.SignerMethod = o.signerName
	}
	if o.address != "" {
		cfg.Address = o.address
	}
	if o.registryURL != "" {
		cfg.RegistryURL = o.registryURL
	}
	if o.rpcURL != "" {
		if cfg.Network == "mainnet" {
			cfg.MainnetRPC = o.rpcURL
		} else {
			cfg.TestnetRPC = o.rpcURL
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *rootOptions) chainClient(cfg *config.Config) (*chain.Client, error) {
	return chain.NewClient(chain.Config{RPCURL: cfg.RPCURL()})
}

func (o *rootOptions) resolveSigner(cfg *config.Config) (signer.Signer, error) {
	method, err := signer.ParseMethod(cfg.SignerMethod)
	if err != nil {
		return nil, err
	}
	return signer.FromMethod(method, signer.Options{
		Address:  cfg.Address,
		Network:  cfg.Network,
		RelayURL: cfg.RelayURL,
		Approval: approvalConfig(cfg),
		Log:      o.log.WithComponent("signer"),
	})
}

func (o *rootOptions) newPipeline(cfg *config.Config, s signer.Signer) (*pipeline.Pipeline, error) {
	set, err := contracts.ForNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}
	client, err := o.chainClient(cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.New(client, s, set, o.log.WithComponent("pipeline")), nil
}

// registryClient returns nil when no registry is configured; commands then
// run the pure on-chain flow.
func (o *rootOptions) registryClient(cfg *config.Config) *registry.Client {
	if cfg.RegistryURL == "" {
		return nil
	}
	return registry.NewClient(cfg.RegistryURL, o.log.WithComponent("registry"))
}

func approvalConfig(cfg *config.Config) signer.ApprovalConfig {
	return signer.ApprovalConfig{
		BasePort: cfg.ApprovalBasePort,
		PortSpan: cfg.ApprovalPortSpan,
	}
}
