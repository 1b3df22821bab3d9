package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"greenstay/infras/otel"
	"greenstay/infras/postgres"
	"greenstay/internal/domains/payment/model"
	"greenstay/shared/constant"
	gDto "greenstay/shared/dto"
	"greenstay/shared/logger"
	gRepo "greenstay/shared/repository"
)

type Payment interface {
	Insert(ctx context.Context, model model.PaymentAttempt) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.PaymentAttempt, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.PaymentAttempt, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error

	GetByTxnRef(ctx context.Context, txnRef string) (model.PaymentAttempt, error)
	GetLatestByBookingID(ctx context.Context, bookingID string) (model.PaymentAttempt, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.PaymentAttempt]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Payment {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.PaymentAttempt](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// GetByTxnRef resolves a gateway callback to its attempt. An unknown ref
// returns the zero model, not an error.
func (repo *repositoryImpl) GetByTxnRef(ctx context.Context, txnRef string) (model.PaymentAttempt, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".payment.GetByTxnRef")
	defer scope.End()

	query := fmt.Sprintf("SELECT * FROM %s WHERE txn_ref = $1", model.TableName)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var attempt model.PaymentAttempt

	err := repo.db.Read.GetContext(ctx, &attempt, query, txnRef)
	if errors.Is(err, sql.ErrNoRows) {
		return attempt, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return attempt, fmt.Errorf("failed to get payment attempt by txn ref: %w", err)
	}

	return attempt, nil
}

func (repo *repositoryImpl) GetLatestByBookingID(ctx context.Context, bookingID string) (model.PaymentAttempt, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".payment.GetLatestByBookingID")
	defer scope.End()

	query := fmt.Sprintf("SELECT * FROM %s WHERE booking_id = $1 ORDER BY created_at DESC LIMIT 1", model.TableName)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var attempt model.PaymentAttempt

	err := repo.db.Read.GetContext(ctx, &attempt, query, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return attempt, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return attempt, fmt.Errorf("failed to get latest payment attempt: %w", err)
	}

	return attempt, nil
}
