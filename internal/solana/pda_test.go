package solana

import (
	"testing"

	"github.com/mr-tron/base58"
)

func TestValidateAddress(t *testing.T) {
	valid := []string{
		PumpFunProgram,
		PumpFunFeeRecipient,
		WrappedSOLMint,
	}
	for _, addr := range valid {
		if err := ValidateAddress(addr); err != nil {
			t.Errorf("ValidateAddress(%s): %v", addr, err)
		}
	}

	invalid := []string{
		"",
		"not-base58-0OIl",
		"abc",
		"4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofMIIIII",
	}
	for _, addr := range invalid {
		if err := ValidateAddress(addr); err == nil {
			t.Errorf("ValidateAddress(%q): expected error", addr)
		}
	}
}

func TestDeriveBondingCurve(t *testing.T) {
	mint := WrappedSOLMint

	pda, err := DeriveBondingCurve(mint)
	if err != nil {
		t.Fatalf("DeriveBondingCurve: %v", err)
	}

	raw, err := base58.Decode(pda)
	if err != nil {
		t.Fatalf("derived PDA is not base58: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("expected 32-byte PDA, got %d bytes", len(raw))
	}

	// PDAs must sit off the ed25519 curve.
	if isOnCurve(raw) {
		t.Error("derived PDA lies on the curve")
	}

	// Derivation is deterministic.
	again, err := DeriveBondingCurve(mint)
	if err != nil {
		t.Fatalf("DeriveBondingCurve (second): %v", err)
	}
	if again != pda {
		t.Errorf("expected deterministic derivation, got %s then %s", pda, again)
	}
}

func TestDeriveBondingCurve_BadMint(t *testing.T) {
	if _, err := DeriveBondingCurve("tooshort"); err == nil {
		t.Error("expected error for malformed mint")
	}
}
