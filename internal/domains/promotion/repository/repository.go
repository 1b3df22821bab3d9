package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"greenstay/infras/otel"
	"greenstay/infras/postgres"
	"greenstay/internal/domains/promotion/model"
	"greenstay/shared/constant"
	gDto "greenstay/shared/dto"
	"greenstay/shared/logger"
	gRepo "greenstay/shared/repository"

	"github.com/jmoiron/sqlx"
)

type Promotion interface {
	Insert(ctx context.Context, model model.Promotion) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Promotion, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Promotion, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	Delete(ctx context.Context, filter gDto.FilterGroup) error

	GetByCode(ctx context.Context, code string) (model.Promotion, error)
	GetByCodeForUpdateTx(ctx context.Context, tx *sqlx.Tx, code string) (model.Promotion, error)
	CountUsages(ctx context.Context, promotionID string) (int, error)
	CountUsagesTx(ctx context.Context, tx *sqlx.Tx, promotionID string) (int, error)
	CountUserUsages(ctx context.Context, promotionID, userID string) (int, error)
	CountUserUsagesTx(ctx context.Context, tx *sqlx.Tx, promotionID, userID string) (int, error)
	InsertUsageTx(ctx context.Context, tx *sqlx.Tx, usage model.Usage) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Promotion]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Promotion {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Promotion](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// GetByCode looks a promotion up case-insensitively. A missing code returns
// the zero model, not an error.
func (repo *repositoryImpl) GetByCode(ctx context.Context, code string) (model.Promotion, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".promotion.GetByCode")
	defer scope.End()

	query := fmt.Sprintf("SELECT * FROM %s WHERE LOWER(code) = LOWER($1)", model.TableName)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var promo model.Promotion

	err := repo.db.Read.GetContext(ctx, &promo, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return promo, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return promo, fmt.Errorf("failed to get promotion by code: %w", err)
	}

	return promo, nil
}

// GetByCodeForUpdateTx locks the promotion row so concurrent redemptions
// serialize on the usage-limit check.
func (repo *repositoryImpl) GetByCodeForUpdateTx(ctx context.Context, tx *sqlx.Tx, code string) (model.Promotion, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".promotion.GetByCodeForUpdateTx")
	defer scope.End()

	query := fmt.Sprintf("SELECT * FROM %s WHERE LOWER(code) = LOWER($1) FOR UPDATE", model.TableName)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var promo model.Promotion

	err := tx.GetContext(ctx, &promo, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return promo, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return promo, fmt.Errorf("failed to lock promotion by code: %w", err)
	}

	return promo, nil
}

func (repo *repositoryImpl) CountUsages(ctx context.Context, promotionID string) (int, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".promotion.CountUsages")
	defer scope.End()

	return repo.countUsages(ctx, scope, repo.db.Read, promotionID, constant.Empty)
}

func (repo *repositoryImpl) CountUsagesTx(ctx context.Context, tx *sqlx.Tx, promotionID string) (int, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".promotion.CountUsagesTx")
	defer scope.End()

	return repo.countUsages(ctx, scope, tx, promotionID, constant.Empty)
}

func (repo *repositoryImpl) CountUserUsages(ctx context.Context, promotionID, userID string) (int, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".promotion.CountUserUsages")
	defer scope.End()

	return repo.countUsages(ctx, scope, repo.db.Read, promotionID, userID)
}

func (repo *repositoryImpl) CountUserUsagesTx(ctx context.Context, tx *sqlx.Tx, promotionID, userID string) (int, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".promotion.CountUserUsagesTx")
	defer scope.End()

	return repo.countUsages(ctx, scope, tx, promotionID, userID)
}

func (repo *repositoryImpl) countUsages(ctx context.Context, scope otel.Scope, q sqlx.QueryerContext, promotionID, userID string) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(id) FROM %s WHERE promotion_id = $1", model.UsageTableName)
	args := []any{promotionID}

	if userID != constant.Empty {
		query += " AND user_id = $2"
		args = append(args, userID)
	}

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var count int

	err := sqlx.GetContext(ctx, q, &count, query, args...)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return 0, fmt.Errorf("failed to count promotion usages: %w", err)
	}

	return count, nil
}

func (repo *repositoryImpl) InsertUsageTx(ctx context.Context, tx *sqlx.Tx, usage model.Usage) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".promotion.InsertUsageTx")
	defer scope.End()

	query := fmt.Sprintf(
		"INSERT INTO %s (id, promotion_id, booking_id, user_id, used_amount, created_at, modified_at, created_by, modified_by) VALUES (:id, :promotion_id, :booking_id, :user_id, :used_amount, :created_at, :modified_at, :created_by, :modified_by)",
		model.UsageTableName,
	)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	_, err := tx.NamedExecContext(ctx, query, usage)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to insert promotion usage: %w", err)
	}

	return nil
}
