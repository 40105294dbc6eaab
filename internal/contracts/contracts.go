// Package contracts records where the protocol's type scripts are deployed
// on each network.
package contracts

import (
	"fmt"
	"os"
)

// Info is the metadata for one deployed on-chain script.
type Info struct {
	// CodeHash is the type-ID code hash (0x-prefixed, 66 chars).
	CodeHash string
	// DeployTxHash is the transaction where the script binary was deployed.
	DeployTxHash string
	// DeployOutIndex is the output index within the deploy transaction.
	DeployOutIndex uint32
	// DataHash is the data hash of the compiled script binary.
	DataHash string
}

// Set holds the two protocol scripts for one network.
type Set struct {
	Badge  Info
	Anchor Info
}

var testnet = Set{
	Badge: Info{
		CodeHash:       "0xb36ed7616c4c87c0779a6c1238e78a84ea68a2638173f25ed140650e0454fbb9",
		DeployTxHash:   "0x9ae36ae06c449d704bc20af5c455c32a220f73249b5b95a15e8a1e352848fda9",
		DeployOutIndex: 0,
		DataHash:       "0x3da692e19366c26dace65eaa1d6517ca9e4f555cb78a608bfb41d0ea4c5c468b",
	},
	Anchor: Info{
		CodeHash:       "0xd565d738ad5ac99addddc59fd3af5e0d54469dc9834cf766260c7e0d23c70b37",
		DeployTxHash:   "0x9ae36ae06c449d704bc20af5c455c32a220f73249b5b95a15e8a1e352848fda9",
		DeployOutIndex: 1,
		DataHash:       "0xde6f3d1814ec3bf5aceaf8fe754f9c82affc4de9f277aa6519b5ad52e892807b",
	},
}

// ForNetwork returns the deployed script set for the named network. Env
// overrides let operators point at their own deployments.
func ForNetwork(network string) (Set, error) {
	switch network {
	case "testnet", "":
		s := testnet
		s.loadFromEnv()
		return s, nil
	case "mainnet":
		return Set{}, fmt.Errorf("mainnet contracts are not deployed yet; use --network testnet")
	default:
		return Set{}, fmt.Errorf("unknown network %q", network)
	}
}

// loadFromEnv overrides deployment coordinates from environment variables.
func (s *Set) loadFromEnv() {
	if h := os.Getenv("CKB_POP_BADGE_CODE_HASH"); h != "" {
		s.Badge.CodeHash = h
	}
	if h := os.Getenv("CKB_POP_BADGE_DEPLOY_TX"); h != "" {
		s.Badge.DeployTxHash = h
	}
	if h := os.Getenv("CKB_POP_ANCHOR_CODE_HASH"); h != "" {
		s.Anchor.CodeHash = h
	}
	if h := os.Getenv("CKB_POP_ANCHOR_DEPLOY_TX"); h != "" {
		s.Anchor.DeployTxHash = h
	}
}
