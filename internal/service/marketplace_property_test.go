// Property-based tests for the marketplace purchase rules.
package service

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"campus-events/internal/ledger"
)

// purchaseResult mirrors the outcome of MarketplaceService.Buy.
type purchaseResult struct {
	BuyerAfter  decimal.Decimal
	SellerAfter decimal.Decimal
	Sold        bool
	Err         error
}

// simulatePurchase applies the buy rules without database dependencies.
func simulatePurchase(buyerBalance, sellerBalance, price decimal.Decimal, itemStatus string, buyerIsSeller bool) purchaseResult {
	out := purchaseResult{BuyerAfter: buyerBalance, SellerAfter: sellerBalance}

	if itemStatus != "active" {
		out.Err = ErrItemUnavailable
		return out
	}
	if buyerIsSeller {
		out.Err = ErrOwnItem
		return out
	}
	if buyerBalance.LessThan(price) {
		out.Err = ledger.ErrInsufficientFunds
		return out
	}

	out.BuyerAfter = buyerBalance.Sub(price)
	out.SellerAfter = sellerBalance.Add(price)
	out.Sold = true
	return out
}

// TestPurchaseConservationProperty: a successful purchase moves exactly the
// price from buyer to seller; total money is unchanged.
func TestPurchaseConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		buyer := decimal.NewFromInt(rapid.Int64Range(1, 1000000).Draw(t, "buyer"))
		seller := decimal.NewFromInt(rapid.Int64Range(0, 1000000).Draw(t, "seller"))
		price := decimal.NewFromInt(rapid.Int64Range(1, buyer.IntPart()).Draw(t, "price"))

		out := simulatePurchase(buyer, seller, price, "active", false)

		if !out.Sold {
			t.Fatalf("purchase should succeed: %v", out.Err)
		}
		if !out.BuyerAfter.Equal(buyer.Sub(price)) {
			t.Fatalf("buyer balance: got %s, want %s", out.BuyerAfter, buyer.Sub(price))
		}
		if !out.SellerAfter.Equal(seller.Add(price)) {
			t.Fatalf("seller balance: got %s, want %s", out.SellerAfter, seller.Add(price))
		}

		totalBefore := buyer.Add(seller)
		totalAfter := out.BuyerAfter.Add(out.SellerAfter)
		if !totalBefore.Equal(totalAfter) {
			t.Fatalf("money not conserved: before %s, after %s", totalBefore, totalAfter)
		}
	})
}

// TestPurchaseNoOverdraftProperty: a buyer short on funds fails and nothing
// moves.
func TestPurchaseNoOverdraftProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		buyer := decimal.NewFromInt(rapid.Int64Range(0, 999).Draw(t, "buyer"))
		seller := decimal.NewFromInt(rapid.Int64Range(0, 1000000).Draw(t, "seller"))
		price := buyer.Add(decimal.NewFromInt(rapid.Int64Range(1, 100000).Draw(t, "extra")))

		out := simulatePurchase(buyer, seller, price, "active", false)

		if out.Sold {
			t.Fatalf("purchase should fail with balance %s < price %s", buyer, price)
		}
		if !errors.Is(out.Err, ledger.ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got %v", out.Err)
		}
		if !out.BuyerAfter.Equal(buyer) || !out.SellerAfter.Equal(seller) {
			t.Fatal("balances changed on failed purchase")
		}
	})
}

// TestPurchaseSoldItemProperty: a non-active item can never be bought, so
// the first of two serialized buyers wins and the second gets
// ErrItemUnavailable.
func TestPurchaseSoldItemProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		price := decimal.NewFromInt(rapid.Int64Range(1, 1000).Draw(t, "price"))
		first := decimal.NewFromInt(rapid.Int64Range(1000, 10000).Draw(t, "first"))
		second := decimal.NewFromInt(rapid.Int64Range(1000, 10000).Draw(t, "second"))

		out1 := simulatePurchase(first, decimal.Zero, price, "active", false)
		if !out1.Sold {
			t.Fatalf("first purchase should succeed: %v", out1.Err)
		}

		out2 := simulatePurchase(second, out1.SellerAfter, price, "sold", false)
		if out2.Sold {
			t.Fatal("second purchase of a sold item should fail")
		}
		if !errors.Is(out2.Err, ErrItemUnavailable) {
			t.Fatalf("expected ErrItemUnavailable, got %v", out2.Err)
		}
	})
}

func TestPurchaseOwnItem(t *testing.T) {
	out := simulatePurchase(decimal.NewFromInt(100), decimal.NewFromInt(100), decimal.NewFromInt(10), "active", true)
	if out.Sold {
		t.Fatal("buying your own item should fail")
	}
	if !errors.Is(out.Err, ErrOwnItem) {
		t.Fatalf("expected ErrOwnItem, got %v", out.Err)
	}
}
