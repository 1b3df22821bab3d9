package dto_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"greenstay/internal/domains/booking/model/dto"
)

func TestCreateBookingItem_ParseRange(t *testing.T) {
	t.Run("valid range", func(t *testing.T) {
		item := dto.CreateBookingItem{
			HomestayID:   "homestay-1",
			CheckinDate:  "2026-10-01",
			CheckoutDate: "2026-10-04",
			Guests:       2,
		}

		rng, err := item.ParseRange()

		assert.NoError(t, err)
		assert.Equal(t, time.October, rng.Start.Month())
		assert.Equal(t, 1, rng.Start.Day())
		assert.Equal(t, 4, rng.End.Day())
		assert.Equal(t, 3*24*time.Hour, rng.End.Sub(rng.Start))
	})

	t.Run("malformed checkin date", func(t *testing.T) {
		item := dto.CreateBookingItem{
			CheckinDate:  "01-10-2026",
			CheckoutDate: "2026-10-04",
		}

		_, err := item.ParseRange()

		assert.Error(t, err)
	})

	t.Run("malformed checkout date", func(t *testing.T) {
		item := dto.CreateBookingItem{
			CheckinDate:  "2026-10-01",
			CheckoutDate: "04/10/2026",
		}

		_, err := item.ParseRange()

		assert.Error(t, err)
	})
}
