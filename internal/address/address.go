// Package address implements deterministic account address derivation for
// the settlement engine. A market address is a keyed keccak-256 digest of
// (domain tag, creator, market id); every subordinate account (vault, token
// classes) is derived from the market address under its own tag, so no
// operation can succeed against an address that was not produced by this
// scheme.
package address

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/eventum/internal/domain"
)

// Tag is the derivation domain separator. Tags mirror the account seeds the
// on-chain layout uses, so addresses are stable across components.
type Tag string

const (
	TagMarket   Tag = "Market"
	TagVault    Tag = "market-vault"
	TagYesMint  Tag = "yes_mint"
	TagNoMint   Tag = "no_mint"
	TagLPMint   Tag = "lp_mint"
	tagCollat   Tag = "collateral"
	tagIdentity Tag = "identity"
)

// derive computes keccak256(tag || seeds...).
func derive(tag Tag, seeds ...[]byte) domain.Address {
	parts := make([][]byte, 0, len(seeds)+1)
	parts = append(parts, []byte(tag))
	parts = append(parts, seeds...)

	var addr domain.Address
	copy(addr[:], ethcrypto.Keccak256(parts...))
	return addr
}

// Market derives the market record address for (creator, marketID). The
// market id is encoded little-endian, matching the stored record layout.
func Market(creator domain.Address, marketID uint64) domain.Address {
	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], marketID)
	return derive(TagMarket, creator[:], id[:])
}

// Vault derives the collateral vault address for a market.
func Vault(market domain.Address) domain.Address {
	return derive(TagVault, market[:])
}

// YesMint derives the YES-outcome token class for a market.
func YesMint(market domain.Address) domain.Address {
	return derive(TagYesMint, market[:])
}

// NoMint derives the NO-outcome token class for a market.
func NoMint(market domain.Address) domain.Address {
	return derive(TagNoMint, market[:])
}

// LPMint derives the liquidity token class for a market.
func LPMint(market domain.Address) domain.Address {
	return derive(TagLPMint, market[:])
}

// CollateralClass is the single collateral token class shared by all
// markets. It takes no seeds; the tag alone pins it.
func CollateralClass() domain.Address {
	return derive(tagCollat)
}

// Identity derives a caller address from an arbitrary external identifier
// (for example a wallet public key). Useful for harnesses that do not carry
// native 32-byte identities.
func Identity(id string) domain.Address {
	return derive(tagIdentity, []byte(id))
}

// VerifyMarket reports whether addr is the correct derivation for
// (creator, marketID). The engine rejects records whose stored address does
// not verify, preventing address confusion.
func VerifyMarket(addr, creator domain.Address, marketID uint64) bool {
	return Market(creator, marketID) == addr
}
