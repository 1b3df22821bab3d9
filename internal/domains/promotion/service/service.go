package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"fmt"

	"greenstay/config"
	"greenstay/infras/otel"
	"greenstay/internal/domains/promotion/model"
	"greenstay/internal/domains/promotion/model/dto"
	"greenstay/internal/domains/promotion/repository"
	"greenstay/shared"
	"greenstay/shared/cache"
	"greenstay/shared/constant"
	gDto "greenstay/shared/dto"
	"greenstay/shared/failure"
	"greenstay/shared/timezone"

	"github.com/rs/zerolog/log"
)

const (
	cacheGetPromotion    = "promotion:get"
	cacheGetAllPromotion = "promotion:gets"
	cacheCountPromotion  = "promotion:count"
)

type Promotion interface {
	Validate(ctx context.Context, req dto.ValidatePromotionRequest) (dto.ValidatePromotionResponse, error)
	Create(ctx context.Context, req dto.CreatePromotionRequest) error
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetPromotionsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.PromotionResponse, error)
	Update(ctx context.Context, req dto.UpdatePromotionRequest, id string) error
	Delete(ctx context.Context, id string) error
}

type serviceImpl struct {
	repo  repository.Promotion
	cfg   *config.Config
	cache cache.RedisCache
	otel  otel.Otel
}

func New(repo repository.Promotion, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Promotion {
	return &serviceImpl{
		repo:  repo,
		cfg:   cfg,
		cache: cache,
		otel:  otel,
	}
}

// Validate runs the eligibility checks for a code against a cart subtotal.
// A rejected code is reported in the response, not as an error. Validation
// reads are advisory: the authoritative recheck happens inside the booking
// transaction.
func (s *serviceImpl) Validate(ctx context.Context, req dto.ValidatePromotionRequest) (res dto.ValidatePromotionResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Validate")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	res.Code = req.Code

	promo, err := s.repo.GetByCode(ctx, req.Code)
	if err != nil {
		log.Error().Err(err).Msg("failed to get promotion by code")

		return res, fmt.Errorf("failed to get promotion by code: %w", err)
	}

	var used, userUsed int

	if promo.ID != constant.Empty {
		used, err = s.repo.CountUsages(ctx, promo.ID)
		if err != nil {
			log.Error().Err(err).Msg("failed to count promotion usages")

			return res, fmt.Errorf("failed to count promotion usages: %w", err)
		}

		if user != constant.Empty {
			userUsed, err = s.repo.CountUserUsages(ctx, promo.ID, user)
			if err != nil {
				log.Error().Err(err).Msg("failed to count promotion usages for user")

				return res, fmt.Errorf("failed to count promotion usages for user: %w", err)
			}
		}
	}

	if reason := promo.RejectionReason(req.Subtotal, used, userUsed, timezone.Now()); reason != constant.Empty {
		res.Reason = reason

		return res, nil
	}

	if reason, rerr := s.checkStackability(ctx, promo, req.AppliedCodes); rerr != nil {
		return res, rerr
	} else if reason != constant.Empty {
		res.Reason = reason

		return res, nil
	}

	res.Valid = true
	res.Discount = promo.Discount(req.Subtotal)

	return res, nil
}

// checkStackability rejects the combination when the candidate or any of the
// already applied codes is marked non-stackable.
func (s *serviceImpl) checkStackability(ctx context.Context, promo model.Promotion, appliedCodes []string) (string, error) {
	if len(appliedCodes) == 0 {
		return constant.Empty, nil
	}

	if !promo.Stackable {
		return model.ReasonNotStackable, nil
	}

	for _, code := range appliedCodes {
		applied, err := s.repo.GetByCode(ctx, code)
		if err != nil {
			log.Error().Err(err).Str("code", code).Msg("failed to get applied promotion")

			return constant.Empty, fmt.Errorf("failed to get applied promotion: %w", err)
		}

		if applied.ID != constant.Empty && !applied.Stackable {
			return model.ReasonNotStackable, nil
		}
	}

	return constant.Empty, nil
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreatePromotionRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	existing, err := s.repo.GetByCode(ctx, req.Code)
	if err != nil {
		log.Error().Err(err).Msg("failed to check promotion code")

		return fmt.Errorf("failed to check promotion code: %w", err)
	}

	if existing.ID != constant.Empty {
		return failure.Conflict("promotion code already exists") // nolint:wrapcheck
	}

	if err = s.repo.Insert(ctx, req.ToModel(user)); err != nil {
		return err
	}

	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cacheGetAllPromotion)
		shared.InvalidateCaches(c, s.cache, cacheCountPromotion)
	}()

	return nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetPromotionsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllPromotion, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for promotions")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count promotions")

		return res, fmt.Errorf("failed to count promotions: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get promotions")

		return res, fmt.Errorf("failed to get promotions: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save promotions to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountPromotion, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for promotion count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count promotions")

		return res, fmt.Errorf("failed to count promotions: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save promotion count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.PromotionResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetPromotion, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for promotion")

		return res, nil
	}

	promo, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get promotion")

		return res, fmt.Errorf("failed to get promotion: %w", err)
	}

	if promo.ID == constant.Empty {
		return res, failure.NotFound("promotion not found") // nolint:wrapcheck
	}

	res.FromModel(promo)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save promotion to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Update(ctx context.Context, req dto.UpdatePromotionRequest, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Update")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	exist, err := s.repo.Exist(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to check promotion existence")

		return fmt.Errorf("failed to check promotion existence: %w", err)
	}

	if !exist {
		return failure.NotFound("promotion not found") // nolint:wrapcheck
	}

	if err := s.repo.Update(ctx, shared.TransformFields(req, user), filter); err != nil {
		log.Error().Err(err).Msg("failed to update promotion")

		return fmt.Errorf("failed to update promotion: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetPromotion, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete promotion cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllPromotion)
		shared.InvalidateCaches(c, s.cache, cacheCountPromotion)
	}()

	return nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Delete")
	defer scope.End()
	defer scope.TraceIfError(err)

	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	exist, err := s.repo.Exist(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to check if promotion exists")

		return fmt.Errorf("failed to check if promotion exists: %w", err)
	}

	if !exist {
		return failure.NotFound("promotion not found") // nolint:wrapcheck
	}

	if err := s.repo.Delete(ctx, filter); err != nil {
		log.Error().Err(err).Msg("failed to delete promotion")

		return fmt.Errorf("failed to delete promotion: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetPromotion, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete promotion from cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllPromotion)
		shared.InvalidateCaches(c, s.cache, cacheCountPromotion)
	}()

	return nil
}
