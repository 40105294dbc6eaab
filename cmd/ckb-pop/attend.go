package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ckb-pop/popcli/internal/cli"
	"github.com/ckb-pop/popcli/internal/pipeline"
	"github.com/ckb-pop/popcli/internal/popcrypto"
	"github.com/ckb-pop/popcli/internal/presence"
)

// newAttendCmd runs the full attendance flow: parse the captured code,
// check freshness, sign the attendance proof, and mint the badge.
func newAttendCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "attend <code>",
		Short: "Prove attendance from a captured code and mint a badge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := args[0]
			code, err := presence.CheckFreshness(raw, time.Now())
			if err != nil {
				if errors.Is(err, presence.ErrExpired) {
					return fmt.Errorf("code expired (codes are valid for %s); capture a fresh one", presence.MaxCodeAge)
				}
				return fmt.Errorf("invalid code (expected event_id|timestamp|tag): %w", err)
			}
			fmt.Println("Event:  ", code.EventID)
			fmt.Println("Code ts:", code.IssuedAt)

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
			ctx := cmd.Context()

			sp := cli.NewSpinner("Waiting for wallet to sign the attendance proof...")
			sp.Start()
			msg := popcrypto.AttendanceMessage(code.EventID, code.IssuedAt, s.Address())
			sig, err := s.SignMessage(ctx, msg)
			if err != nil {
				sp.Fail("Attendance proof not signed.")
				return err
			}
			sp.Success("Attendance proof signed.")
			proofHash := popcrypto.SHA256Hex([]byte(sig))

			sp = cli.NewSpinner("Minting badge (sign, broadcast, confirm)...")
			sp.Start()
			receipt, err := p.MintBadge(ctx, code.EventID, s.Address(), proofHash)
			if err != nil {
				if errors.Is(err, pipeline.ErrConfirmationTimeout) && receipt != nil {
					sp.Fail("Badge mint broadcast but not yet confirmed.")
					fmt.Println("  TX:", receipt.TxHash)
				} else {
					sp.Fail("Badge mint failed.")
				}
				return err
			}
			sp.Success("Attendance recorded and badge minted!")
			fmt.Println("  TX:", receipt.TxHash)
			return nil
		},
	}
}
