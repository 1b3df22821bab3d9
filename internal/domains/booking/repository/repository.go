package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"greenstay/infras/otel"
	"greenstay/infras/postgres"
	"greenstay/internal/domains/booking/model"
	promoModel "greenstay/internal/domains/promotion/model"
	promoRepo "greenstay/internal/domains/promotion/repository"
	"greenstay/shared/constant"
	gDto "greenstay/shared/dto"
	"greenstay/shared/logger"
	gModel "greenstay/shared/model"
	gRepo "greenstay/shared/repository"
	"greenstay/shared/timezone"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrPromotionNoLongerValid is returned when the in-transaction recheck finds
// the promotion consumed or otherwise ineligible since validation.
var ErrPromotionNoLongerValid = errors.New("promotion no longer valid")

type Booking interface {
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error

	CreateReservation(ctx context.Context, booking model.Booking, items []model.LineItem, promoCode string) error
	GetLineItems(ctx context.Context, bookingID string) ([]model.LineItem, error)
	ListBlockedRanges(ctx context.Context, homestayID string, from, to time.Time) ([]model.DateRange, error)
	ExpirePendingPayments(ctx context.Context, cutoff time.Time) (int, error)
	TransitionStatus(ctx context.Context, id, fromStatus string, fields map[string]any) (bool, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
	lineItems gRepo.Repository[model.LineItem]
	promos    promoRepo.Promotion
	db        *postgres.Connection
	otel      otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel, promos promoRepo.Promotion) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel),
		lineItems:  gRepo.NewRepository[model.LineItem](model.LineItemEntityName, model.LineItemTableName, model.FieldID, db, otel),
		promos:     promos,
		db:         db,
		otel:       otel,
	}
}

// CreateReservation commits a booking atomically. Per distinct homestay it
// takes a transaction-scoped advisory lock (sorted, to keep lock order stable
// across concurrent requests), re-checks overlaps against committed rows,
// re-checks the promotion under a row lock, then writes the header, line
// items and usage. Any failure rolls everything back.
func (repo *repositoryImpl) CreateReservation(ctx context.Context, booking model.Booking, items []model.LineItem, promoCode string) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.CreateReservation")
	defer scope.End()

	return gRepo.Transact(ctx, repo.db, func(tx *sqlx.Tx) error { //nolint:wrapcheck
		homestayIDs := distinctSortedHomestays(items)

		for _, homestayID := range homestayIDs {
			if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", homestayID); err != nil {
				logger.ErrorWithStack(err)
				scope.TraceError(err)

				return fmt.Errorf("failed to take advisory lock: %w", err)
			}
		}

		for _, item := range items {
			overlap, err := repo.hasOverlapTx(ctx, tx, item)
			if err != nil {
				return err
			}

			if overlap {
				return &model.RangeConflictError{
					HomestayID:   item.HomestayID,
					CheckinDate:  item.CheckinDate,
					CheckoutDate: item.CheckoutDate,
				}
			}
		}

		if promoCode != constant.Empty {
			if err := repo.redeemPromotionTx(ctx, tx, booking, promoCode); err != nil {
				return err
			}
		}

		if err := repo.InsertTx(ctx, tx, booking); err != nil {
			return err //nolint:wrapcheck
		}

		return repo.lineItems.InsertBulkTx(ctx, tx, items) //nolint:wrapcheck
	})
}

func (repo *repositoryImpl) hasOverlapTx(ctx context.Context, tx *sqlx.Tx, item model.LineItem) (bool, error) {
	_, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.hasOverlapTx")
	defer scope.End()

	query := fmt.Sprintf(`SELECT EXISTS(
		SELECT 1 FROM %s li
		JOIN %s b ON b.id = li.booking_id
		WHERE li.homestay_id = $1
		  AND li.checkin_date < $3 AND $2 < li.checkout_date
		  AND (
			b.status IN ($4, $5, $6)
			OR (b.status = $7 AND (b.expires_at IS NULL OR b.expires_at > $8))
		  )
	)`, model.LineItemTableName, model.TableName)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var overlap bool

	err := tx.GetContext(ctx, &overlap, query,
		item.HomestayID, item.CheckinDate, item.CheckoutDate,
		model.StatusPending, model.StatusConfirmed, model.StatusPaid,
		model.StatusPendingPayment, timezone.Now(),
	)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return false, fmt.Errorf("failed to check booking overlap: %w", err)
	}

	return overlap, nil
}

// redeemPromotionTx relocks the promotion row and repeats the limit checks
// against committed usage before recording the redemption.
func (repo *repositoryImpl) redeemPromotionTx(ctx context.Context, tx *sqlx.Tx, booking model.Booking, promoCode string) error {
	promo, err := repo.promos.GetByCodeForUpdateTx(ctx, tx, promoCode)
	if err != nil {
		return err //nolint:wrapcheck
	}

	used, err := repo.promos.CountUsagesTx(ctx, tx, promo.ID)
	if err != nil {
		return err //nolint:wrapcheck
	}

	userUsed, err := repo.promos.CountUserUsagesTx(ctx, tx, promo.ID, booking.UserID)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if reason := promo.RejectionReason(booking.Subtotal, used, userUsed, timezone.Now()); reason != constant.Empty {
		return fmt.Errorf("%w: %s", ErrPromotionNoLongerValid, reason)
	}

	return repo.promos.InsertUsageTx(ctx, tx, promoModel.Usage{ //nolint:wrapcheck
		ID:          uuid.NewString(),
		PromotionID: promo.ID,
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		UsedAmount:  booking.DiscountAmount,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  booking.UserID,
			ModifiedBy: booking.UserID,
		},
	})
}

func (repo *repositoryImpl) GetLineItems(ctx context.Context, bookingID string) ([]model.LineItem, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.GetLineItems")
	defer scope.End()

	query := fmt.Sprintf("SELECT * FROM %s WHERE booking_id = $1 ORDER BY checkin_date", model.LineItemTableName)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var items []model.LineItem

	err := repo.db.Read.SelectContext(ctx, &items, query, bookingID)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to get booking line items: %w", err)
	}

	return items, nil
}

// ListBlockedRanges returns the merged occupied ranges for a homestay within
// a window, reading only rows whose status still blocks availability.
func (repo *repositoryImpl) ListBlockedRanges(ctx context.Context, homestayID string, from, to time.Time) ([]model.DateRange, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.ListBlockedRanges")
	defer scope.End()

	query := fmt.Sprintf(`SELECT li.checkin_date AS start, li.checkout_date AS "end"
		FROM %s li
		JOIN %s b ON b.id = li.booking_id
		WHERE li.homestay_id = $1
		  AND li.checkin_date < $3 AND $2 < li.checkout_date
		  AND (
			b.status IN ($4, $5, $6)
			OR (b.status = $7 AND (b.expires_at IS NULL OR b.expires_at > $8))
		  )
		ORDER BY li.checkin_date`, model.LineItemTableName, model.TableName)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var ranges []model.DateRange

	err := repo.db.Read.SelectContext(ctx, &ranges, query,
		homestayID, from, to,
		model.StatusPending, model.StatusConfirmed, model.StatusPaid,
		model.StatusPendingPayment, timezone.Now(),
	)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to list blocked ranges: %w", err)
	}

	return model.MergeRanges(ranges), nil
}

// ExpirePendingPayments cancels holds whose expiry passed and reports how
// many rows changed.
func (repo *repositoryImpl) ExpirePendingPayments(ctx context.Context, cutoff time.Time) (int, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.ExpirePendingPayments")
	defer scope.End()

	query := fmt.Sprintf(
		"UPDATE %s SET status = $1, modified_at = $2, modified_by = $3 WHERE status = $4 AND expires_at IS NOT NULL AND expires_at < $5",
		model.TableName,
	)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	result, err := repo.db.Write.ExecContext(ctx, query,
		model.StatusCancelled, timezone.Now(), "system",
		model.StatusPendingPayment, cutoff,
	)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return 0, fmt.Errorf("failed to expire pending payment holds: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return int(affected), nil
}

// TransitionStatus writes the fields only while the booking still holds
// fromStatus. It reports whether a row was claimed, so callers can tell a
// committed transition from one lost to a concurrent writer.
func (repo *repositoryImpl) TransitionStatus(ctx context.Context, id, fromStatus string, fields map[string]any) (bool, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.TransitionStatus")
	defer scope.End()

	set := []string{}
	for col := range maps.Keys(fields) {
		set = append(set, fmt.Sprintf("%s = :%s", col, col))
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = :guard_id AND %s = :guard_status",
		model.TableName, strings.Join(set, ", "), model.FieldID, model.FieldStatus,
	)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	args := map[string]any{
		"guard_id":     id,
		"guard_status": fromStatus,
	}
	maps.Copy(args, fields)

	result, err := repo.db.Write.NamedExecContext(ctx, query, args)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return false, fmt.Errorf("failed to transition booking status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

func distinctSortedHomestays(items []model.LineItem) []string {
	ids := []string{}

	for _, item := range items {
		if !slices.Contains(ids, item.HomestayID) {
			ids = append(ids, item.HomestayID)
		}
	}

	slices.Sort(ids)

	return ids
}
