package dto

import (
	"time"

	"greenstay/internal/domains/booking/model"
	"greenstay/shared"
	"greenstay/shared/constant"
	gDto "greenstay/shared/dto"
	"greenstay/shared/timezone"
)

type CreateBookingItem struct {
	HomestayID   string `json:"homestay_id"   validate:"required,uuid"`
	CheckinDate  string `json:"checkin_date"  validate:"required,datetime=2006-01-02"`
	CheckoutDate string `json:"checkout_date" validate:"required,datetime=2006-01-02"`
	Guests       int    `json:"guests"        validate:"required,min=1"`
}

// ParseRange interprets the dates in the application timezone. The range is
// half-open: the checkout night is not occupied.
func (i CreateBookingItem) ParseRange() (model.DateRange, error) {
	start, err := timezone.Parse(constant.DateOnlyFormat, i.CheckinDate)
	if err != nil {
		return model.DateRange{}, err //nolint:wrapcheck
	}

	end, err := timezone.Parse(constant.DateOnlyFormat, i.CheckoutDate)
	if err != nil {
		return model.DateRange{}, err //nolint:wrapcheck
	}

	return model.DateRange{Start: start, End: end}, nil
}

type CreateBookingRequest struct {
	Items         []CreateBookingItem `json:"items"          validate:"required,min=1,dive"`
	PaymentMethod string              `json:"payment_method" validate:"required,oneof=cash bank_transfer vnpay"`
	PromoCode     string              `json:"promo_code"     validate:"omitempty,max=50"`
	Note          string              `json:"note"           validate:"omitempty,max=500"`
	ClientTotal   *int64              `json:"client_total"   validate:"omitempty,min=0"`
}

type CreateBookingResponse struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Subtotal  int64  `json:"subtotal"`
	Discount  int64  `json:"discount"`
	Total     int64  `json:"total"`
}

type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending pending_payment confirmed paid completed cancelled"`
}

type UpdateBookingNoteRequest struct {
	Note string `json:"note" validate:"required,max=500"`
}

type LineItemResponse struct {
	ID           string `json:"id"`
	HomestayID   string `json:"homestay_id"`
	CheckinDate  string `json:"checkin_date"`
	CheckoutDate string `json:"checkout_date"`
	Guests       int    `json:"guests"`
	UnitPrice    int64  `json:"unit_price"`
	Nights       int    `json:"nights"`
	LineTotal    int64  `json:"line_total"`
}

func (r *LineItemResponse) FromModel(item model.LineItem) {
	r.ID = item.ID
	r.HomestayID = item.HomestayID
	r.CheckinDate = item.CheckinDate.Format(constant.DateOnlyFormat)
	r.CheckoutDate = item.CheckoutDate.Format(constant.DateOnlyFormat)
	r.Guests = item.Guests
	r.UnitPrice = item.UnitPrice
	r.Nights = item.Nights
	r.LineTotal = item.LineTotal
}

type BookingResponse struct {
	ID             string             `json:"id"`
	UserID         string             `json:"user_id"`
	Status         string             `json:"status"`
	PaymentMethod  string             `json:"payment_method"`
	Subtotal       int64              `json:"subtotal"`
	DiscountAmount int64              `json:"discount_amount"`
	TotalPrice     int64              `json:"total_price"`
	Note           string             `json:"note"`
	ExpiresAt      *time.Time         `json:"expires_at,omitempty"`
	Items          []LineItemResponse `json:"items"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(booking model.Booking, items []model.LineItem) {
	r.ID = booking.ID
	r.UserID = booking.UserID
	r.Status = booking.Status
	r.PaymentMethod = booking.PaymentMethod
	r.Subtotal = booking.Subtotal
	r.DiscountAmount = booking.DiscountAmount
	r.TotalPrice = booking.TotalPrice
	r.Note = booking.Note
	r.ExpiresAt = booking.ExpiresAt
	r.Metadata.FromModel(booking.Metadata)

	r.Items = make([]LineItemResponse, len(items))
	for i, item := range items {
		r.Items[i].FromModel(item)
	}
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod, nil)
	}
}

type UnavailableRangesResponse struct {
	HomestayID string            `json:"homestay_id"`
	Ranges     []model.DateRange `json:"ranges"`
}
