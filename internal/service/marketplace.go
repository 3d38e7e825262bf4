package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"campus-events/internal/ledger"
	"campus-events/internal/metrics"
	"campus-events/internal/model"
	"campus-events/internal/moderation"
	"campus-events/internal/notify"
	"campus-events/internal/pkg/db"
	"campus-events/internal/pkg/lock"
	"campus-events/internal/repository"
)

// MarketplaceService handles listings and wallet-funded purchases.
type MarketplaceService struct {
	pool     *db.Pool
	users    *repository.UserRepository
	items    *repository.MarketplaceRepository
	ledger   *ledger.Ledger
	notifier *notify.Notifier
	locks    *lock.KeyedLock
	metrics  *metrics.Metrics
}

// NewMarketplaceService creates a MarketplaceService.
func NewMarketplaceService(pool *db.Pool, locks *lock.KeyedLock, m *metrics.Metrics) *MarketplaceService {
	return &MarketplaceService{
		pool:     pool,
		users:    repository.NewUserRepository(pool),
		items:    repository.NewMarketplaceRepository(pool),
		ledger:   ledger.New(pool),
		notifier: notify.New(pool),
		locks:    locks,
		metrics:  m,
	}
}

// CreateItem lists an item for sale. Title and description pass the
// moderation gate first.
func (s *MarketplaceService) CreateItem(ctx context.Context, ownerID uuid.UUID, title, description string, price decimal.Decimal, category *string) (*model.MarketplaceItem, error) {
	if price.Sign() <= 0 {
		return nil, ledger.ErrInvalidAmount
	}

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	for _, text := range []string{title, description} {
		if ok, why := moderation.Check(text, owner.TrustScore); !ok {
			return nil, &ModerationError{Reason: why}
		}
	}

	return s.items.Create(ctx, ownerID, title, description, price, category)
}

// ListItems returns active listings.
func (s *MarketplaceService) ListItems(ctx context.Context, category *string, limit int) ([]*model.MarketplaceItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.items.ListActive(ctx, category, limit)
}

// DeleteItem retires a listing. Owner only; sold items stay sold.
func (s *MarketplaceService) DeleteItem(ctx context.Context, itemID int64, callerID uuid.UUID) error {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.OwnerID != callerID {
		return ErrForbidden
	}
	if item.Status != model.ItemStatusActive {
		return ErrItemUnavailable
	}

	return s.items.SetStatus(ctx, itemID, model.ItemStatusDeleted)
}

// BuyResult reports a completed purchase.
type BuyResult struct {
	Item          *model.MarketplaceItem
	WalletBalance decimal.Decimal
}

// Buy purchases a listing with wallet balance. The item row lock serializes
// concurrent buyers on the status check; the debit, the seller's credit and
// both transaction rows commit together, so money is conserved: the buyer
// loses exactly what the seller gains.
func (s *MarketplaceService) Buy(ctx context.Context, itemID int64, buyerID uuid.UUID) (*BuyResult, error) {
	var result BuyResult

	err := s.locks.WithLock("user:"+buyerID.String(), func() error {
		return s.pool.InTx(ctx, func(tx pgx.Tx) error {
			item, err := s.items.WithTx(tx).GetByIDForUpdate(ctx, itemID)
			if err != nil {
				return err
			}
			if item.Status != model.ItemStatusActive {
				return ErrItemUnavailable
			}
			if item.OwnerID == buyerID {
				return ErrOwnItem
			}

			l := s.ledger.WithTx(tx)

			balance, err := l.Debit(ctx, buyerID, item.Price)
			if err != nil {
				return err
			}
			if _, err := l.Credit(ctx, item.OwnerID, item.Price); err != nil {
				return err
			}

			buyDesc := fmt.Sprintf("Satın alma: %s", item.Title)
			sellDesc := fmt.Sprintf("Satış: %s", item.Title)
			if _, err := l.RecordTransaction(ctx, buyerID, item.Price, model.TxTypePayment, model.PaymentPaid, &buyDesc); err != nil {
				return err
			}
			if _, err := l.RecordTransaction(ctx, item.OwnerID, item.Price, model.TxTypeDeposit, model.PaymentPaid, &sellDesc); err != nil {
				return err
			}

			if err := s.items.WithTx(tx).SetStatus(ctx, itemID, model.ItemStatusSold); err != nil {
				return err
			}

			s.notifier.WithTx(tx).Send(ctx, item.OwnerID, "Ürün satıldı", sellDesc, notify.TypeMarketplace)

			item.Status = model.ItemStatusSold
			result.Item = item
			result.WalletBalance = balance
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.WalletDebits.Inc()
	s.metrics.WalletCredits.Inc()

	log.Info().
		Int64("item_id", itemID).
		Str("buyer_id", buyerID.String()).
		Msg("marketplace purchase completed")

	return &result, nil
}
