// Package ckbaddr encodes and decodes CKB full addresses (bech32m, CKB2021
// format): the payload is 0x00 || code_hash || hash_type || args under the
// "ckb" (mainnet) or "ckt" (testnet) prefix.
package ckbaddr

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ckb-pop/popcli/internal/chain"
)

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// bech32m checksum constant.
const bech32mConst = 0x2bc830a3

// full-address format type byte.
const formatTypeFull = 0x00

var hashTypeNames = map[byte]string{
	0x00: "data",
	0x01: "type",
	0x02: "data1",
	0x04: "data2",
}

var hashTypeBytes = map[string]byte{
	"data":  0x00,
	"type":  0x01,
	"data1": 0x02,
	"data2": 0x04,
}

// Decode parses a CKB full address into the lock script it encodes.
// Returns the network prefix ("ckb" or "ckt") alongside the script.
func Decode(address string) (string, chain.Script, error) {
	hrp, data, err := bech32Decode(address)
	if err != nil {
		return "", chain.Script{}, fmt.Errorf("invalid CKB address: %w", err)
	}
	if hrp != "ckb" && hrp != "ckt" {
		return "", chain.Script{}, fmt.Errorf("invalid CKB address: unknown prefix %q", hrp)
	}

	payload, err := convertBits(data, 5, 8, false)
	if err != nil {
		return "", chain.Script{}, fmt.Errorf("invalid CKB address: %w", err)
	}
	// format byte + 32-byte code hash + hash type byte.
	if len(payload) < 34 {
		return "", chain.Script{}, fmt.Errorf("invalid CKB address: payload too short (%d bytes)", len(payload))
	}
	if payload[0] != formatTypeFull {
		return "", chain.Script{}, fmt.Errorf("invalid CKB address: unsupported format type %#x", payload[0])
	}

	hashType, ok := hashTypeNames[payload[33]]
	if !ok {
		return "", chain.Script{}, fmt.Errorf("invalid CKB address: unknown hash type %#x", payload[33])
	}

	script := chain.Script{
		CodeHash: "0x" + hex.EncodeToString(payload[1:33]),
		HashType: hashType,
		Args:     "0x" + hex.EncodeToString(payload[34:]),
	}
	return hrp, script, nil
}

// Encode renders a lock script as a CKB full address under the given
// network prefix.
func Encode(hrp string, script chain.Script) (string, error) {
	if hrp != "ckb" && hrp != "ckt" {
		return "", fmt.Errorf("unknown address prefix %q", hrp)
	}
	ht, ok := hashTypeBytes[script.HashType]
	if !ok {
		return "", fmt.Errorf("unknown hash type %q", script.HashType)
	}
	codeHash, err := hex.DecodeString(strings.TrimPrefix(script.CodeHash, "0x"))
	if err != nil || len(codeHash) != 32 {
		return "", fmt.Errorf("invalid code hash %q", script.CodeHash)
	}
	args, err := hex.DecodeString(strings.TrimPrefix(script.Args, "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid args %q", script.Args)
	}

	payload := make([]byte, 0, 34+len(args))
	payload = append(payload, formatTypeFull)
	payload = append(payload, codeHash...)
	payload = append(payload, ht)
	payload = append(payload, args...)

	data, err := convertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32Encode(hrp, data), nil
}

// =============================================================================
// bech32m primitives
// =============================================================================

func bech32Polymod(values []byte) uint32 {
	gen := []uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func hrpExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}
	return out
}

func bech32Encode(hrp string, data []byte) string {
	values := append(hrpExpand(hrp), data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	polymod := bech32Polymod(values) ^ bech32mConst

	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, d := range data {
		sb.WriteByte(charset[d])
	}
	for i := 0; i < 6; i++ {
		sb.WriteByte(charset[(polymod>>uint(5*(5-i)))&31])
	}
	return sb.String()
}

func bech32Decode(addr string) (string, []byte, error) {
	if strings.ToLower(addr) != addr && strings.ToUpper(addr) != addr {
		return "", nil, fmt.Errorf("mixed-case string")
	}
	addr = strings.ToLower(addr)

	sep := strings.LastIndexByte(addr, '1')
	if sep < 1 || sep+7 > len(addr) {
		return "", nil, fmt.Errorf("missing or misplaced separator")
	}
	hrp := addr[:sep]

	data := make([]byte, 0, len(addr)-sep-1)
	for i := sep + 1; i < len(addr); i++ {
		idx := strings.IndexByte(charset, addr[i])
		if idx < 0 {
			return "", nil, fmt.Errorf("invalid character %q", addr[i])
		}
		data = append(data, byte(idx))
	}

	values := append(hrpExpand(hrp), data...)
	if bech32Polymod(values) != bech32mConst {
		return "", nil, fmt.Errorf("checksum mismatch")
	}
	return hrp, data[:len(data)-6], nil
}

// convertBits regroups the input from fromBits-wide groups to toBits-wide
// groups. Padding is only legal when encoding.
func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	var acc uint32
	var bits uint
	out := make([]byte, 0, len(data)*int(fromBits)/int(toBits)+1)
	maxv := uint32(1<<toBits) - 1

	for _, b := range data {
		if uint(b)>>fromBits != 0 {
			return nil, fmt.Errorf("invalid data range: %d", b)
		}
		acc = acc<<fromBits | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte((acc>>bits)&maxv))
		}
	}

	if pad {
		if bits > 0 {
			out = append(out, byte((acc<<(toBits-bits))&maxv))
		}
	} else if bits >= fromBits || (acc<<(toBits-bits))&maxv != 0 {
		return nil, fmt.Errorf("invalid padding")
	}
	return out, nil
}
