package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ckb-pop/popcli/internal/chain"
	"github.com/ckb-pop/popcli/internal/cli"
	"github.com/ckb-pop/popcli/internal/contracts"
	"github.com/ckb-pop/popcli/internal/pipeline"
	"github.com/ckb-pop/popcli/internal/popcrypto"
	"github.com/ckb-pop/popcli/internal/presence"
	"github.com/ckb-pop/popcli/internal/registry"
)

func newEventCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Create and query events",
	}
	cmd.AddCommand(
		newEventCreateCmd(opts),
		newEventListCmd(opts),
		newEventShowCmd(opts),
		newEventWindowCmd(opts),
	)
	return cmd
}

// =============================================================================
// event create
// =============================================================================

func newEventCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		name        string
		description string
		imageURL    string
		location    string
		start       string
		end         string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register an event and anchor it on-chain",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			createdAt := time.Now().Unix()
			nonce := uuid.NewString()
			eventID := popcrypto.ComputeEventID(s.Address(), createdAt, nonce)

			metadata, err := json.Marshal(map[string]string{
				"name":        name,
				"description": description,
				"image_url":   imageURL,
				"location":    location,
				"start_time":  start,
				"end_time":    end,
			})
			if err != nil {
				return fmt.Errorf("encode metadata: %w", err)
			}
			metadataHash := popcrypto.SHA256Hex(metadata)

			// Register with the registry first, when one is configured; the
			// registry verifies the creation proof and owns the canonical ID.
			reg := opts.registryClient(cfg)
			if reg != nil {
				sp := cli.NewSpinner("Waiting for wallet to sign the creation proof...")
				sp.Start()
				proof, err := s.SignMessage(ctx, popcrypto.CreationMessage(eventID, createdAt, s.Address()))
				if err != nil {
					sp.Fail("Creation proof not signed.")
					return err
				}
				sp.Success("Creation proof signed.")
				event, err := reg.CreateEvent(ctx, registry.CreateEventRequest{
					Name:      name,
					Venue:     location,
					Creator:   s.Address(),
					CreatedAt: createdAt,
					Nonce:     nonce,
					Proof:     proof,
				})
				if err != nil {
					return err
				}
				eventID = event.EventID
			}

			fmt.Println("Event ID:", eventID)

			sp := cli.NewSpinner("Anchoring event (sign, broadcast, confirm)...")
			sp.Start()
			receipt, err := p.AnchorEvent(ctx, eventID, metadataHash)
			if err != nil {
				if errors.Is(err, pipeline.ErrConfirmationTimeout) && receipt != nil {
					sp.Fail("Anchor broadcast but not yet confirmed.")
					fmt.Println("TX:", receipt.TxHash)
				} else {
					sp.Fail("Event anchoring failed.")
				}
				return err
			}
			sp.Success("Event anchored on-chain.")
			fmt.Println("TX:", receipt.TxHash)

			if reg != nil {
				if err := reg.Activate(ctx, eventID, receipt.TxHash); err != nil {
					return fmt.Errorf("event anchored but activation failed: %w", err)
				}
				fmt.Println("Event activated in registry.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "event name")
	cmd.Flags().StringVar(&description, "description", "", "event description")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "event image URL")
	cmd.Flags().StringVar(&location, "location", "", "event location")
	cmd.Flags().StringVar(&start, "start", "", "event start time")
	cmd.Flags().StringVar(&end, "end", "", "event end time")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

// =============================================================================
// event window
// =============================================================================

func newEventWindowCmd(opts *rootOptions) *cobra.Command {
	var duration uint64

	cmd := &cobra.Command{
		Use:   "window <event-id>",
		Short: "Open an attendance window and emit rotating proof codes",
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
			ctx := cmd.Context()

			windowStart := time.Now().Unix()
			var windowEnd int64
			if duration > 0 {
				windowEnd = windowStart + int64(duration)*60
			}

			sp := cli.NewSpinner("Waiting for wallet to sign the window proof...")
			sp.Start()
			sig, err := s.SignMessage(ctx, popcrypto.WindowMessage(eventID, windowStart, windowEnd))
			if err != nil {
				sp.Fail("Window proof not signed.")
				return err
			}
			sp.Success("Window proof signed.")
			secret, err := presence.DeriveWindowSecret(eventID, windowStart, sig)
			if err != nil {
				return err
			}

			fmt.Println("Attendance window open!")
			if windowEnd > 0 {
				fmt.Printf("Duration: %d minutes.\n", duration)
			} else {
				fmt.Println("Duration: open-ended (Ctrl-C to close).")
			}
			fmt.Println()

			var rotatorOpts []presence.RotatorOption
			if windowEnd > 0 {
				rotatorOpts = append(rotatorOpts, presence.WithDuration(time.Duration(duration)*time.Minute))
			}
			rotator := presence.NewRotator(eventID, secret, opts.log.WithComponent("rotator"), rotatorOpts...)

			done := make(chan error, 1)
			go func() { done <- rotator.Run(ctx) }()

			for code := range rotator.Codes() {
				fmt.Printf("[%s] code: %s\n",
					time.Unix(code.IssuedAt, 0).Format(time.TimeOnly), code.Encode())
				fmt.Printf("      valid for %s, next in %s\n",
					presence.MaxCodeAge, presence.RotationInterval)
			}

			if err := <-done; err != nil && !errors.Is(err, ctx.Err()) {
				return err
			}
			fmt.Println("Window closed.")
			return nil
		},
	}

	cmd.Flags().Uint64Var(&duration, "duration", 0, "window duration in minutes (0 = open-ended)")
	return cmd
}

// =============================================================================
// event list / show
// =============================================================================

// anchorData mirrors the JSON payload of an event-anchor cell.
type anchorData struct {
	EventID        string `json:"event_id"`
	CreatorAddress string `json:"creator_address"`
	MetadataHash   string `json:"metadata_hash,omitempty"`
}

func newEventShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show an event's on-chain anchor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID := args[0]
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

			cells, err := client.FindEventAnchors(cmd.Context(), set.Anchor.CodeHash, eventID)
			if err != nil {
				return err
			}
			if len(cells) == 0 {
				fmt.Println("No event anchor found for ID:", eventID)
				return nil
			}
			for _, cell := range cells {
				if data, ok := decodeAnchorData(cell); ok {
					out, _ := json.MarshalIndent(data, "", "  ")
					fmt.Println(string(out))
				}
				fmt.Println("Anchor tx:", cell.OutPoint.TxHash)
			}

			if reg := opts.registryClient(cfg); reg != nil {
				event, err := reg.Get(cmd.Context(), eventID)
				switch {
				case errors.Is(err, registry.ErrNotFound):
					fmt.Println("Registry: not registered")
				case err != nil:
					opts.log.WithError(err).Warn("registry lookup failed")
				case event.Active:
					fmt.Println("Registry:", event.Name, "(active)")
				default:
					fmt.Println("Registry:", event.Name, "(inactive)")
				}
			}
			return nil
		},
	}
}

func newEventListCmd(opts *rootOptions) *cobra.Command {
	var creator string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List anchored events",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			cells, err := client.FindAllEventAnchors(cmd.Context(), set.Anchor.CodeHash)
			if err != nil {
				return err
			}

			var creatorHash string
			if creator != "" {
				creatorHash = popcrypto.SHA256Hex([]byte(creator))
			}

			count := 0
			for _, cell := range cells {
				if creatorHash != "" && !argsMatchSecondary(cell, creatorHash) {
					continue
				}
				count++
				line := fmt.Sprintf("#%d", count)
				if data, ok := decodeAnchorData(cell); ok {
					line += "  id=" + data.EventID
				}
				line += "  tx=" + cell.OutPoint.TxHash
				fmt.Println(line)
			}

			if count == 0 {
				fmt.Println("No events found.")
			} else {
				fmt.Printf("\n%d event(s) total.\n", count)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&creator, "creator", "", "only events created by this address")
	return cmd
}

func decodeAnchorData(cell chain.IndexerCell) (anchorData, bool) {
	raw, err := hex.DecodeString(strings.TrimPrefix(cell.OutputData, "0x"))
	if err != nil {
		return anchorData{}, false
	}
	var data anchorData
	if err := json.Unmarshal(raw, &data); err != nil {
		return anchorData{}, false
	}
	return data, true
}

// argsMatchSecondary reports whether the second hash of a cell's 64-byte
// type args equals wantHex (the address-side key of the pair).
func argsMatchSecondary(cell chain.IndexerCell, wantHex string) bool {
	if cell.Output.Type == nil {
		return false
	}
	args := strings.TrimPrefix(cell.Output.Type.Args, "0x")
	return len(args) >= 128 && args[64:128] == wantHex
}
