package model

import "greenstay/shared/model"

const (
	TableName  = "homestays"
	EntityName = "homestay"

	FieldID            = "id"
	FieldOwnerID       = "owner_id"
	FieldName          = "name"
	FieldCity          = "city"
	FieldPricePerNight = "price_per_night"
	FieldMaxGuests     = "max_guests"
	FieldStatus        = "status"

	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Homestay struct {
	ID            string `db:"id"`
	OwnerID       string `db:"owner_id"`
	Name          string `db:"name"`
	City          string `db:"city"`
	PricePerNight int64  `db:"price_per_night"`
	MaxGuests     int    `db:"max_guests"`
	Status        string `db:"status"`
	model.Metadata
}

func (h Homestay) Active() bool {
	return h.Status == StatusActive
}
