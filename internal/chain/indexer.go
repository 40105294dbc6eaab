package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// =============================================================================
// Indexer Queries
// =============================================================================

// pageSize is the get_cells page size for full scans.
const pageSize = 100

// GetCells runs a single paginated get_cells call against the indexer.
// Prefix search on type-script args is what makes the protocol's
// SHA256(event_id) || SHA256(address) keying queryable by event alone.
func (c *Client) GetCells(ctx context.Context, key SearchKey, order string, limit uint64, afterCursor string) (*CellPage, error) {
	var cursor interface{}
	if afterCursor != "" {
		cursor = afterCursor
	}

	result, err := c.Call(ctx, "get_cells", []interface{}{key, order, fmt.Sprintf("0x%x", limit), cursor})
	if err != nil {
		return nil, fmt.Errorf("get_cells: %w", err)
	}

	var page CellPage
	if err := json.Unmarshal(result, &page); err != nil {
		return nil, fmt.Errorf("decode get_cells response: %w", err)
	}
	return &page, nil
}

// GetAllCells collects every page of a get_cells query.
func (c *Client) GetAllCells(ctx context.Context, key SearchKey) ([]IndexerCell, error) {
	var all []IndexerCell
	cursor := ""

	for {
		page, err := c.GetCells(ctx, key, "asc", pageSize, cursor)
		if err != nil {
			return nil, err
		}
		if len(page.Objects) == 0 {
			break
		}
		all = append(all, page.Objects...)

		if page.LastCursor == "" {
			break
		}
		cursor = page.LastCursor
	}

	return all, nil
}

// =============================================================================
// Protocol search helpers
// =============================================================================

// FindBadgesForEvent finds all badge cells minted for an event, matching on
// the first 32 bytes of type-script args (SHA256 of the event ID).
func (c *Client) FindBadgesForEvent(ctx context.Context, badgeCodeHash, eventID string) ([]IndexerCell, error) {
	return c.GetAllCells(ctx, TypePrefixSearch(badgeCodeHash, sha256Hex(eventID)))
}

// FindAllBadges finds badge cells across all events.
func (c *Client) FindAllBadges(ctx context.Context, badgeCodeHash string) ([]IndexerCell, error) {
	return c.GetAllCells(ctx, TypePrefixSearch(badgeCodeHash, ""))
}

// FindEventAnchors finds anchor cells for one event ID.
func (c *Client) FindEventAnchors(ctx context.Context, anchorCodeHash, eventID string) ([]IndexerCell, error) {
	return c.GetAllCells(ctx, TypePrefixSearch(anchorCodeHash, sha256Hex(eventID)))
}

// FindAllEventAnchors finds every anchor cell.
func (c *Client) FindAllEventAnchors(ctx context.Context, anchorCodeHash string) ([]IndexerCell, error) {
	return c.GetAllCells(ctx, TypePrefixSearch(anchorCodeHash, ""))
}

// TypePrefixSearch builds a search key matching cells whose type script has
// the given code hash and whose args start with hexPrefix.
func TypePrefixSearch(codeHash, hexPrefix string) SearchKey {
	return SearchKey{
		Script: Script{
			CodeHash: codeHash,
			HashType: "type",
			Args:     "0x" + hexPrefix,
		},
		ScriptType:       "type",
		ScriptSearchMode: "prefix",
		WithData:         true,
	}
}

// TypeExactSearch builds a search key matching one exact type script.
func TypeExactSearch(codeHash, argsHex string) SearchKey {
	return SearchKey{
		Script: Script{
			CodeHash: codeHash,
			HashType: "type",
			Args:     argsHex,
		},
		ScriptType:       "type",
		ScriptSearchMode: "exact",
		WithData:         true,
	}
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
