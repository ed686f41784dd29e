package classify

import (
	"errors"
	"testing"

	"github.com/OnchainAlpha/solanatrading/internal/domain"
	"github.com/OnchainAlpha/solanatrading/internal/solana"
)

const (
	testPool = "PoolAuthority111111111111111111111111111111"
	testMint = "TargetMint11111111111111111111111111111111"
)

func f64(v float64) *float64 { return &v }

func poolBalances(native, token float64) []solana.TokenBalance {
	return []solana.TokenBalance{
		{AccountIndex: 1, Owner: testPool, Mint: solana.WrappedSOLMint, UIAmount: f64(native)},
		{AccountIndex: 2, Owner: testPool, Mint: testMint, UIAmount: f64(token)},
	}
}

func TestPoolDelta_Buy(t *testing.T) {
	c := NewPoolDeltaClassifier(testPool, testMint)

	side, sol, token, err := c.Delta(poolBalances(100, 1000), poolBalances(101, 990))
	if err != nil {
		t.Fatalf("Delta: %v", err)
	}
	if side != domain.SideBuy {
		t.Errorf("expected buy, got %s", side)
	}
	if sol != 1 {
		t.Errorf("expected magnitude 1, got %v", sol)
	}
	if token != 10 {
		t.Errorf("expected token amount 10, got %v", token)
	}
}

func TestPoolDelta_Sell(t *testing.T) {
	c := NewPoolDeltaClassifier(testPool, testMint)

	side, sol, _, err := c.Delta(poolBalances(100, 1000), poolBalances(99, 1010))
	if err != nil {
		t.Fatalf("Delta: %v", err)
	}
	if side != domain.SideSell {
		t.Errorf("expected sell, got %s", side)
	}
	if sol != 1 {
		t.Errorf("expected magnitude 1, got %v", sol)
	}
}

func TestPoolDelta_Unchanged(t *testing.T) {
	c := NewPoolDeltaClassifier(testPool, testMint)

	side, sol, token, err := c.Delta(poolBalances(100, 1000), poolBalances(100, 1000))
	if err != nil {
		t.Fatalf("Delta: %v", err)
	}
	if side != domain.SideNone || sol != 0 || token != 0 {
		t.Errorf("expected none/0/0, got %s/%v/%v", side, sol, token)
	}
}

func TestPoolDelta_DirectionIgnoresTokenSide(t *testing.T) {
	c := NewPoolDeltaClassifier(testPool, testMint)

	// Token reserve moves but the native side is flat: no direction.
	side, sol, _, err := c.Delta(poolBalances(100, 1000), poolBalances(100, 900))
	if err != nil {
		t.Fatalf("Delta: %v", err)
	}
	if side != domain.SideNone || sol != 0 {
		t.Errorf("expected none, got %s/%v", side, sol)
	}
}

func TestPoolDelta_FirstMatchWins(t *testing.T) {
	c := NewPoolDeltaClassifier(testPool, testMint)

	// Duplicate owner/mint pairs: the first entry decides.
	pre := []solana.TokenBalance{
		{Owner: testPool, Mint: solana.WrappedSOLMint, UIAmount: f64(100)},
		{Owner: testPool, Mint: solana.WrappedSOLMint, UIAmount: f64(500)},
		{Owner: testPool, Mint: testMint, UIAmount: f64(1000)},
	}
	post := []solana.TokenBalance{
		{Owner: testPool, Mint: solana.WrappedSOLMint, UIAmount: f64(103)},
		{Owner: testPool, Mint: solana.WrappedSOLMint, UIAmount: f64(400)},
		{Owner: testPool, Mint: testMint, UIAmount: f64(970)},
	}

	side, sol, _, err := c.Delta(pre, post)
	if err != nil {
		t.Fatalf("Delta: %v", err)
	}
	if side != domain.SideBuy || sol != 3 {
		t.Errorf("expected buy/3 from first entries, got %s/%v", side, sol)
	}
}

func TestPoolDelta_MissingNativeEntry(t *testing.T) {
	c := NewPoolDeltaClassifier(testPool, testMint)

	pre := []solana.TokenBalance{
		{Owner: testPool, Mint: testMint, UIAmount: f64(1000)},
	}
	_, _, _, err := c.Delta(pre, poolBalances(100, 990))
	if !errors.Is(err, ErrMissingData) {
		t.Errorf("expected ErrMissingData, got %v", err)
	}
}

func TestPoolDelta_Classify(t *testing.T) {
	c := NewPoolDeltaClassifier(testPool, testMint)

	blockTime := int64(1700000000)
	tx := &solana.TransactionDetail{
		Signature:         "sigbuy",
		Signatures:        []string{"sigbuy"},
		BlockTime:         &blockTime,
		PreTokenBalances:  poolBalances(100, 1000),
		PostTokenBalances: poolBalances(101, 990),
	}

	rec, err := c.Classify(tx)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if rec.Side != domain.SideBuy || rec.SolAmount != 1 || rec.TokenAmount != 10 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Signature != "sigbuy" {
		t.Errorf("expected signature carried over, got %q", rec.Signature)
	}
	if rec.Timestamp.Unix() != blockTime {
		t.Errorf("expected block time %d, got %d", blockTime, rec.Timestamp.Unix())
	}
}

func TestPoolDelta_Classify_Unchanged(t *testing.T) {
	c := NewPoolDeltaClassifier(testPool, testMint)

	blockTime := int64(1700000000)
	tx := &solana.TransactionDetail{
		Signatures:        []string{"sigflat"},
		BlockTime:         &blockTime,
		PreTokenBalances:  poolBalances(100, 1000),
		PostTokenBalances: poolBalances(100, 1000),
	}

	_, err := c.Classify(tx)
	if !errors.Is(err, ErrNotApplicable) {
		t.Errorf("expected ErrNotApplicable for flat reserves, got %v", err)
	}
}
