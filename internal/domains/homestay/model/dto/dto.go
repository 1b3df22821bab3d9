package dto

import (
	"greenstay/internal/domains/homestay/model"
	"greenstay/shared"
	gDto "greenstay/shared/dto"
	gModel "greenstay/shared/model"
	"greenstay/shared/timezone"

	"github.com/google/uuid"
)

type CreateHomestayRequest struct {
	Name          string `json:"name"            validate:"required,max=150"`
	City          string `json:"city"            validate:"required,max=100"`
	PricePerNight int64  `json:"price_per_night" validate:"required,min=1"`
	MaxGuests     int    `json:"max_guests"      validate:"required,min=1"`
	Status        string `json:"status"          validate:"omitempty,oneof=active inactive"`
}

func (c *CreateHomestayRequest) ToModel(user string) model.Homestay {
	status := c.Status
	if status == "" {
		status = model.StatusActive
	}

	return model.Homestay{
		ID:            uuid.NewString(),
		OwnerID:       user,
		Name:          c.Name,
		City:          c.City,
		PricePerNight: c.PricePerNight,
		MaxGuests:     c.MaxGuests,
		Status:        status,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type UpdateHomestayRequest struct {
	Name          string `db:"name"            json:"name"            validate:"omitempty,max=150"`
	City          string `db:"city"            json:"city"            validate:"omitempty,max=100"`
	PricePerNight *int64 `db:"price_per_night" json:"price_per_night" validate:"omitempty,min=1"`
	MaxGuests     *int   `db:"max_guests"      json:"max_guests"      validate:"omitempty,min=1"`
	Status        string `db:"status"          json:"status"          validate:"omitempty,oneof=active inactive"`
}

type HomestayResponse struct {
	ID            string `json:"id"`
	OwnerID       string `json:"owner_id"`
	Name          string `json:"name"`
	City          string `json:"city"`
	PricePerNight int64  `json:"price_per_night"`
	MaxGuests     int    `json:"max_guests"`
	Status        string `json:"status"`
	gDto.Metadata
}

func (r *HomestayResponse) FromModel(model model.Homestay) {
	r.ID = model.ID
	r.OwnerID = model.OwnerID
	r.Name = model.Name
	r.City = model.City
	r.PricePerNight = model.PricePerNight
	r.MaxGuests = model.MaxGuests
	r.Status = model.Status
	r.Metadata.FromModel(model.Metadata)
}

type GetHomestaysResponse struct {
	Homestays []HomestayResponse `json:"homestays"`
	TotalPage int                `json:"total_page"`
	TotalData int                `json:"total_data"`
}

func (r *GetHomestaysResponse) FromModels(models []model.Homestay, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Homestays = make([]HomestayResponse, len(models))
	for i, mod := range models {
		r.Homestays[i].FromModel(mod)
	}
}
