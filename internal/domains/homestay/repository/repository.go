package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"

	"greenstay/infras/otel"
	"greenstay/infras/postgres"
	"greenstay/internal/domains/homestay/model"
	gDto "greenstay/shared/dto"
	gRepo "greenstay/shared/repository"
)

type Homestay interface {
	Insert(ctx context.Context, model model.Homestay) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Homestay, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Homestay, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	Delete(ctx context.Context, filter gDto.FilterGroup) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Homestay]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Homestay {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Homestay](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}
