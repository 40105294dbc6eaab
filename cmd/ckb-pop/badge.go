package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ckb-pop/popcli/internal/chain"
	"github.com/ckb-pop/popcli/internal/cli"
	"github.com/ckb-pop/popcli/internal/contracts"
	"github.com/ckb-pop/popcli/internal/pipeline"
	"github.com/ckb-pop/popcli/internal/popcrypto"
)

func newBadgeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badge",
		Short: "Mint and query soulbound badges",
	}
	cmd.AddCommand(
		newBadgeMintCmd(opts),
		newBadgeListCmd(opts),
		newBadgeVerifyCmd(opts),
	)
	return cmd
}

// newBadgeMintCmd mints a badge directly, without an attendance proof. Event
// organizers use it to issue badges out of band; the ledger still enforces
// one badge per (event, holder).
func newBadgeMintCmd(opts *rootOptions) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "mint <event-id>",
		Short: "Mint a badge for a recipient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID := args[0]
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			s, err := opts.resolveSigner(cfg)
			if err != nil {
				return err
			}
			p, err := opts.newPipeline(cfg, s)
			if err != nil {
				return err
			}

			sp := cli.NewSpinner("Minting badge (sign, broadcast, confirm)...")
			sp.Start()
			receipt, err := p.MintBadge(cmd.Context(), eventID, to, "")
			if err != nil {
				if errors.Is(err, pipeline.ErrConfirmationTimeout) && receipt != nil {
					sp.Fail("Badge mint broadcast but not yet confirmed.")
					fmt.Println("  TX:", receipt.TxHash)
				} else {
					sp.Fail("Badge mint failed.")
				}
				return err
			}

			sp.Success(fmt.Sprintf("Badge minted for event %s.", eventID))
			fmt.Println("  Recipient:", to)
			fmt.Println("  TX:", receipt.TxHash)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "recipient CKB address")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newBadgeVerifyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <event-id> <address>",
		Short: "Check whether an address holds a badge for an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, address := args[0], args[1]
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			set, err := contracts.ForNetwork(cfg.Network)
			if err != nil {
				return err
			}
			client, err := opts.chainClient(cfg)
			if err != nil {
				return err
			}

			argsHex := "0x" + hex.EncodeToString(popcrypto.TypeScriptArgs(eventID, address))
			key := chain.TypeExactSearch(set.Badge.CodeHash, argsHex)
			page, err := client.GetCells(cmd.Context(), key, "asc", 1, "")
			if err != nil {
				return err
			}

			if len(page.Objects) == 0 {
				fmt.Printf("No badge found for event %s, address %s.\n", eventID, address)
				return nil
			}
			fmt.Println("Badge EXISTS for event", eventID)
			fmt.Println("  Holder: ", address)
			fmt.Println("  Mint tx:", page.Objects[0].OutPoint.TxHash)
			return nil
		},
	}
	return cmd
}

func newBadgeListCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <address>",
		Short: "List badges held by an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			set, err := contracts.ForNetwork(cfg.Network)
			if err != nil {
				return err
			}
			client, err := opts.chainClient(cfg)
			if err != nil {
				return err
			}

			cells, err := client.FindAllBadges(cmd.Context(), set.Badge.CodeHash)
			if err != nil {
				return err
			}

			holderHash := popcrypto.SHA256Hex([]byte(address))
			count := 0
			for _, cell := range cells {
				if !argsMatchSecondary(cell, holderHash) {
					continue
				}
				count++
				eventHash := strings.TrimPrefix(cell.Output.Type.Args, "0x")[:64]
				fmt.Printf("#%d  event_hash=%s  tx=%s\n", count, eventHash, cell.OutPoint.TxHash)
			}

			if count == 0 {
				fmt.Println("No badges found for address", address+".")
			} else {
				fmt.Printf("\n%d badge(s) total.\n", count)
			}
			return nil
		},
	}
	return cmd
}
