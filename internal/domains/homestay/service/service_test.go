package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"greenstay/config"
	"greenstay/infras/otel/mocks"
	homestayMocks "greenstay/internal/domains/homestay/mocks"
	"greenstay/internal/domains/homestay/model"
	"greenstay/internal/domains/homestay/model/dto"
	"greenstay/internal/domains/homestay/service"
	cacheMocks "greenstay/shared/cache/mocks"
	"greenstay/shared/constant"
	"greenstay/shared/failure"
	gModel "greenstay/shared/model"
	"greenstay/shared/timezone"
)

func riverside() model.Homestay {
	return model.Homestay{
		ID:            "homestay-riverside",
		OwnerID:       "owner-1",
		Name:          "Riverside Bungalow",
		City:          "Hoi An",
		PricePerNight: 750000,
		MaxGuests:     4,
		Status:        model.StatusActive,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  "owner-1",
			ModifiedBy: "owner-1",
		},
	}
}

func ownerCtx(user, role string) context.Context {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, user)

	return context.WithValue(ctx, constant.ContextKeyUserRole, role)
}

func TestHomestayService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := homestayMocks.NewMockHomestay(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	svc := service.New(mockRepo, cfg, mockCache, mockOtel)

	ctx := ownerCtx("owner-1", constant.RoleOwner)

	t.Run("successful creation stamps the owner and defaults to active", func(t *testing.T) {
		var inserted model.Homestay

		mockRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, m model.Homestay) error {
				inserted = m

				return nil
			})
		mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		req := dto.CreateHomestayRequest{
			Name:          "Riverside Bungalow",
			City:          "Hoi An",
			PricePerNight: 750000,
			MaxGuests:     4,
		}

		assert.NoError(t, svc.Create(ctx, req))
		assert.Equal(t, "owner-1", inserted.OwnerID)
		assert.Equal(t, model.StatusActive, inserted.Status)
		assert.NotEmpty(t, inserted.ID)
	})

	t.Run("repository error", func(t *testing.T) {
		mockRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("database error"))

		req := dto.CreateHomestayRequest{
			Name:          "Riverside Bungalow",
			City:          "Hoi An",
			PricePerNight: 750000,
			MaxGuests:     4,
		}

		assert.Error(t, svc.Create(ctx, req))
	})
}

func TestHomestayService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := homestayMocks.NewMockHomestay(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	svc := service.New(mockRepo, cfg, mockCache, mockOtel)

	ctx := context.Background()

	t.Run("cache miss falls through to the repository", func(t *testing.T) {
		mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss"))
		mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(riverside(), nil)
		mockCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		res, err := svc.Get(ctx, "homestay-riverside")

		assert.NoError(t, err)
		assert.Equal(t, "Riverside Bungalow", res.Name)
		assert.Equal(t, int64(750000), res.PricePerNight)
	})

	t.Run("unknown id", func(t *testing.T) {
		mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss"))
		mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Homestay{}, nil)

		_, err := svc.Get(ctx, "homestay-missing")

		assert.Error(t, err)
		assert.Equal(t, 404, failure.GetCode(err))
	})
}

func TestHomestayService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := homestayMocks.NewMockHomestay(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	svc := service.New(mockRepo, cfg, mockCache, mockOtel)

	mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	newPrice := int64(900000)
	req := dto.UpdateHomestayRequest{PricePerNight: &newPrice}

	tests := []struct {
		name      string
		ctx       context.Context
		setupMock func()
		wantCode  int
	}{
		{
			name: "owner updates own homestay",
			ctx:  ownerCtx("owner-1", constant.RoleOwner),
			setupMock: func() {
				mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(riverside(), nil)
				mockRepo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "another owner is rejected",
			ctx:  ownerCtx("owner-2", constant.RoleOwner),
			setupMock: func() {
				mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(riverside(), nil)
			},
			wantCode: 403,
		},
		{
			name: "admin can update any homestay",
			ctx:  ownerCtx("admin-1", constant.RoleAdmin),
			setupMock: func() {
				mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(riverside(), nil)
				mockRepo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "unknown homestay",
			ctx:  ownerCtx("owner-1", constant.RoleOwner),
			setupMock: func() {
				mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Homestay{}, nil)
			},
			wantCode: 404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			err := svc.Update(tt.ctx, req, "homestay-riverside")

			if tt.wantCode != 0 {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestHomestayService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := homestayMocks.NewMockHomestay(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	svc := service.New(mockRepo, cfg, mockCache, mockOtel)

	mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	t.Run("owner deletes own homestay", func(t *testing.T) {
		mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(riverside(), nil)
		mockRepo.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil)

		assert.NoError(t, svc.Delete(ownerCtx("owner-1", constant.RoleOwner), "homestay-riverside"))
	})

	t.Run("another owner is rejected", func(t *testing.T) {
		mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(riverside(), nil)

		err := svc.Delete(ownerCtx("owner-2", constant.RoleOwner), "homestay-riverside")

		assert.Error(t, err)
		assert.Equal(t, 403, failure.GetCode(err))
	})
}
