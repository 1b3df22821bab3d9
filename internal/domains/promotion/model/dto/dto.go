package dto

import (
	"time"

	"greenstay/internal/domains/promotion/model"
	"greenstay/shared"
	gDto "greenstay/shared/dto"
	gModel "greenstay/shared/model"
	"greenstay/shared/timezone"

	"github.com/google/uuid"
)

type CreatePromotionRequest struct {
	Code          string    `json:"code"            validate:"required,max=50,alphanum"`
	Type          string    `json:"type"            validate:"required,oneof=percent fixed"`
	Value         int64     `json:"value"           validate:"required,min=1"`
	MaxDiscount   int64     `json:"max_discount"    validate:"omitempty,min=0"`
	MinOrderTotal int64     `json:"min_order_total" validate:"omitempty,min=0"`
	UsageLimit    int       `json:"usage_limit"     validate:"omitempty,min=0"`
	PerUserLimit  int       `json:"per_user_limit"  validate:"omitempty,min=0"`
	Stackable     bool      `json:"stackable"`
	ValidFrom     time.Time `json:"valid_from"      validate:"required"`
	ValidTo       time.Time `json:"valid_to"        validate:"required,gtfield=ValidFrom"`
	Active        *bool     `json:"active"          validate:"omitempty"`
}

func (c *CreatePromotionRequest) ToModel(user string) model.Promotion {
	active := true
	if c.Active != nil {
		active = *c.Active
	}

	return model.Promotion{
		ID:            uuid.NewString(),
		Code:          c.Code,
		Type:          c.Type,
		Value:         c.Value,
		MaxDiscount:   c.MaxDiscount,
		MinOrderTotal: c.MinOrderTotal,
		UsageLimit:    c.UsageLimit,
		PerUserLimit:  c.PerUserLimit,
		Stackable:     c.Stackable,
		ValidFrom:     c.ValidFrom,
		ValidTo:       c.ValidTo,
		Active:        active,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type UpdatePromotionRequest struct {
	Value         *int64     `db:"value"           json:"value"           validate:"omitempty,min=1"`
	MaxDiscount   *int64     `db:"max_discount"    json:"max_discount"    validate:"omitempty,min=0"`
	MinOrderTotal *int64     `db:"min_order_total" json:"min_order_total" validate:"omitempty,min=0"`
	UsageLimit    *int       `db:"usage_limit"     json:"usage_limit"     validate:"omitempty,min=0"`
	PerUserLimit  *int       `db:"per_user_limit"  json:"per_user_limit"  validate:"omitempty,min=0"`
	Stackable     *bool      `db:"stackable"       json:"stackable"       validate:"omitempty"`
	ValidFrom     *time.Time `db:"valid_from"      json:"valid_from"      validate:"omitempty"`
	ValidTo       *time.Time `db:"valid_to"        json:"valid_to"        validate:"omitempty"`
	Active        *bool      `db:"active"          json:"active"          validate:"omitempty"`
}

type ValidatePromotionRequest struct {
	Code         string   `json:"code"          validate:"required,max=50"`
	Subtotal     int64    `json:"subtotal"      validate:"required,min=1"`
	AppliedCodes []string `json:"applied_codes" validate:"omitempty,dive,max=50"`
}

type ValidatePromotionResponse struct {
	Valid    bool   `json:"valid"`
	Reason   string `json:"reason,omitempty"`
	Code     string `json:"code"`
	Discount int64  `json:"discount"`
}

type PromotionResponse struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Type          string    `json:"type"`
	Value         int64     `json:"value"`
	MaxDiscount   int64     `json:"max_discount"`
	MinOrderTotal int64     `json:"min_order_total"`
	UsageLimit    int       `json:"usage_limit"`
	PerUserLimit  int       `json:"per_user_limit"`
	Stackable     bool      `json:"stackable"`
	ValidFrom     time.Time `json:"valid_from"`
	ValidTo       time.Time `json:"valid_to"`
	Active        bool      `json:"active"`
	gDto.Metadata
}

func (r *PromotionResponse) FromModel(model model.Promotion) {
	r.ID = model.ID
	r.Code = model.Code
	r.Type = model.Type
	r.Value = model.Value
	r.MaxDiscount = model.MaxDiscount
	r.MinOrderTotal = model.MinOrderTotal
	r.UsageLimit = model.UsageLimit
	r.PerUserLimit = model.PerUserLimit
	r.Stackable = model.Stackable
	r.ValidFrom = model.ValidFrom
	r.ValidTo = model.ValidTo
	r.Active = model.Active
	r.Metadata.FromModel(model.Metadata)
}

type GetPromotionsResponse struct {
	Promotions []PromotionResponse `json:"promotions"`
	TotalPage  int                 `json:"total_page"`
	TotalData  int                 `json:"total_data"`
}

func (r *GetPromotionsResponse) FromModels(models []model.Promotion, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Promotions = make([]PromotionResponse, len(models))
	for i, mod := range models {
		r.Promotions[i].FromModel(mod)
	}
}
