package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ckb-pop/popcli/internal/chain"
)

func newTxCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Check transaction status on-chain",
	}

	var wait time.Duration
	status := &cobra.Command{
		Use:   "status <tx-hash>",
		Short: "Show a transaction's commit status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txHash := args[0]
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			client, err := opts.chainClient(cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var st chain.TxStatus
			if wait > 0 {
				waitCtx, cancel := context.WithTimeout(ctx, wait)
				defer cancel()
				final, err := client.WaitForCommit(waitCtx, txHash, 0)
				if errors.Is(err, chain.ErrWaitTimeout) {
					return fmt.Errorf("transaction %s not final after %s; check again later", txHash, wait)
				}
				if err != nil {
					return err
				}
				st = *final
			} else {
				tws, err := client.GetTransaction(ctx, txHash)
				if err != nil {
					return err
				}
				if tws.TxStatus.Status == chain.StatusUnknown {
					fmt.Println("Transaction not found:", txHash)
					return nil
				}
				st = tws.TxStatus
			}

			fmt.Println("Transaction:", txHash)
			fmt.Println("Status:     ", st.Status)
			if st.BlockHash != "" {
				fmt.Println("Block:      ", st.BlockHash)
			}
			if st.Reason != "" {
				fmt.Println("Reason:     ", st.Reason)
			}
			if tip, err := client.GetTipBlockNumber(ctx); err == nil {
				fmt.Println("Chain tip:  ", tip)
			} else {
				opts.log.WithError(err).Warn("could not fetch chain tip")
			}
			return nil
		},
	}
	status.Flags().DurationVar(&wait, "wait", 0, "block until committed or rejected, up to this long")

	cmd.AddCommand(status)
	return cmd
}
