package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known pump.fun addresses.
const (
	// PumpFunProgram is the pump.fun bonding curve program.
	PumpFunProgram = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

	// PumpFunFeeRecipient collects protocol fees on pump.fun trades.
	PumpFunFeeRecipient = "CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM"

	// WrappedSOLMint is the wrapped native SOL mint.
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
)

// ValidateAddress checks that addr is a well-formed 32-byte base58 public key.
func ValidateAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("address must decode to 32 bytes, got %d", len(raw))
	}
	return nil
}

// DeriveBondingCurve derives the pump.fun bonding-curve PDA for a mint.
// Seeds: ["bonding-curve", mint].
func DeriveBondingCurve(mint string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}
	programBytes, err := base58.Decode(PumpFunProgram)
	if err != nil {
		return "", fmt.Errorf("decode program id: %w", err)
	}
	if len(mintBytes) != 32 || len(programBytes) != 32 {
		return "", fmt.Errorf("mint and program id must decode to 32 bytes")
	}

	seeds := [][]byte{
		[]byte("bonding-curve"),
		mintBytes,
	}

	pda := derivePDA(seeds, programBytes)
	if pda == "" {
		return "", fmt.Errorf("no valid bump seed found for mint %s", mint)
	}
	return pda, nil
}

// derivePDA derives a Program Derived Address using the Solana algorithm:
// sha256(seeds || bump || programID || "ProgramDerivedAddress"), taking the
// highest bump whose hash is off the ed25519 curve.
func derivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
