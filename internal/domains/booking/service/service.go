package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"greenstay/config"
	"greenstay/infras/kafka"
	"greenstay/infras/otel"
	"greenstay/internal/domains/booking/model"
	"greenstay/internal/domains/booking/model/dto"
	"greenstay/internal/domains/booking/repository"
	homestayModel "greenstay/internal/domains/homestay/model"
	homestayRepo "greenstay/internal/domains/homestay/repository"
	promoDto "greenstay/internal/domains/promotion/model/dto"
	promoService "greenstay/internal/domains/promotion/service"
	"greenstay/shared"
	"greenstay/shared/cache"
	"greenstay/shared/constant"
	gDto "greenstay/shared/dto"
	"greenstay/shared/failure"
	gModel "greenstay/shared/model"
	"greenstay/shared/timezone"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	cacheAvailability = "booking:availability"
	cacheMineBooking  = "booking:mine"
)

// NotificationEvent is the payload published for the external mailer when a
// booking reaches confirmed or paid.
type NotificationEvent struct {
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	Total     int64  `json:"total"`
	At        string `json:"at"`
}

type Booking interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.CreateBookingResponse, error)
	GetMine(ctx context.Context, params gDto.QueryParams) (dto.GetBookingsResponse, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateNote(ctx context.Context, id, note string) error
	UnavailableRanges(ctx context.Context, homestayID, from, to string) (dto.UnavailableRangesResponse, error)
	ExpireStale(ctx context.Context) (int, error)
	StartExpirySweeper(ctx context.Context)
}

type serviceImpl struct {
	repo      repository.Booking
	homestays homestayRepo.Homestay
	promos    promoService.Promotion
	cfg       *config.Config
	cache     cache.RedisCache
	kafka     kafka.Client
	otel      otel.Otel
}

func New(
	repo repository.Booking,
	homestays homestayRepo.Homestay,
	promos promoService.Promotion,
	cfg *config.Config,
	cache cache.RedisCache,
	kafkaClient kafka.Client,
	otel otel.Otel,
) Booking {
	return &serviceImpl{
		repo:      repo,
		homestays: homestays,
		promos:    promos,
		cfg:       cfg,
		cache:     cache,
		kafka:     kafkaClient,
		otel:      otel,
	}
}

// Create recomputes every money figure server-side, validates the items and
// the promo code, then hands the write to the reservation transaction.
func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.CreateBookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	bookingID := uuid.NewString()

	items, subtotal, err := s.buildLineItems(ctx, bookingID, req.Items)
	if err != nil {
		return res, err
	}

	var discount int64

	if req.PromoCode != constant.Empty {
		validation, verr := s.promos.Validate(ctx, promoDto.ValidatePromotionRequest{
			Code:     req.PromoCode,
			Subtotal: subtotal,
		})
		if verr != nil {
			return res, verr
		}

		if !validation.Valid {
			return res, failure.BadRequestFromString(fmt.Sprintf("promotion %s rejected: %s", req.PromoCode, validation.Reason)) // nolint:wrapcheck
		}

		discount = validation.Discount
	}

	total := subtotal - discount
	if total < 0 {
		total = 0
	}

	if req.ClientTotal != nil {
		diff := total - *req.ClientTotal
		if diff < 0 {
			diff = -diff
		}

		if diff > s.cfg.Booking.TotalToleranceVND {
			return res, failure.BadRequestFromString(fmt.Sprintf("client total %d does not match computed total %d", *req.ClientTotal, total)) // nolint:wrapcheck
		}
	}

	status := model.StatusPending

	var expiresAt *time.Time

	if req.PaymentMethod == model.PaymentMethodVNPay {
		status = model.StatusPendingPayment
		expiry := timezone.Now().Add(time.Duration(s.cfg.Booking.PendingPaymentExpiryMinutes) * time.Minute)
		expiresAt = &expiry
	}

	booking := model.Booking{
		ID:             bookingID,
		UserID:         user,
		Status:         status,
		PaymentMethod:  req.PaymentMethod,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TotalPrice:     total,
		Note:           req.Note,
		ExpiresAt:      expiresAt,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}

	if err = s.repo.CreateReservation(ctx, booking, items, req.PromoCode); err != nil {
		var conflict *model.RangeConflictError
		if errors.As(err, &conflict) {
			return res, failure.Conflict(conflict.Error()) // nolint:wrapcheck
		}

		if errors.Is(err, repository.ErrPromotionNoLongerValid) {
			return res, failure.Conflict(err.Error()) // nolint:wrapcheck
		}

		log.Error().Err(err).Msg("failed to create reservation")

		return res, fmt.Errorf("failed to create reservation: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		for _, item := range items {
			shared.InvalidateCaches(c, s.cache, shared.BuildCacheKey(cacheAvailability, item.HomestayID))
		}

		shared.InvalidateCaches(c, s.cache, cacheMineBooking)
	}()

	return dto.CreateBookingResponse{
		BookingID: booking.ID,
		Status:    booking.Status,
		Subtotal:  subtotal,
		Discount:  discount,
		Total:     total,
	}, nil
}

// buildLineItems turns request items into priced rows. Prices always come
// from the catalog, and items in the same request must not collide with each
// other.
func (s *serviceImpl) buildLineItems(ctx context.Context, bookingID string, reqItems []dto.CreateBookingItem) ([]model.LineItem, int64, error) {
	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	items := make([]model.LineItem, 0, len(reqItems))

	var subtotal int64

	for _, reqItem := range reqItems {
		dateRange, err := reqItem.ParseRange()
		if err != nil {
			return nil, 0, failure.BadRequestFromString("invalid booking dates") // nolint:wrapcheck
		}

		if !dateRange.End.After(dateRange.Start) {
			return nil, 0, failure.BadRequestFromString("checkout date must be after checkin date") // nolint:wrapcheck
		}

		if dateRange.Start.Before(timezone.Now().Truncate(24 * time.Hour)) {
			return nil, 0, failure.BadRequestFromString("checkin date must not be in the past") // nolint:wrapcheck
		}

		homestay, err := s.homestays.Get(ctx, shared.FilterByID(reqItem.HomestayID, homestayModel.FieldID, homestayModel.TableName))
		if err != nil {
			log.Error().Err(err).Msg("failed to get homestay")

			return nil, 0, fmt.Errorf("failed to get homestay: %w", err)
		}

		if homestay.ID == constant.Empty {
			return nil, 0, failure.NotFound("homestay not found") // nolint:wrapcheck
		}

		if !homestay.Active() {
			return nil, 0, failure.BadRequestFromString(fmt.Sprintf("homestay %s is not accepting bookings", homestay.ID)) // nolint:wrapcheck
		}

		if reqItem.Guests > homestay.MaxGuests {
			return nil, 0, failure.BadRequestFromString(fmt.Sprintf("homestay %s takes at most %d guests", homestay.ID, homestay.MaxGuests)) // nolint:wrapcheck
		}

		for _, prev := range items {
			if prev.HomestayID == reqItem.HomestayID && dateRange.Overlaps(model.DateRange{Start: prev.CheckinDate, End: prev.CheckoutDate}) {
				return nil, 0, failure.Conflict(fmt.Sprintf("request items overlap for homestay %s", homestay.ID)) // nolint:wrapcheck
			}
		}

		nights := int(dateRange.End.Sub(dateRange.Start).Hours() / 24)
		lineTotal := int64(nights) * homestay.PricePerNight
		subtotal += lineTotal

		items = append(items, model.LineItem{
			ID:           uuid.NewString(),
			BookingID:    bookingID,
			HomestayID:   homestay.ID,
			CheckinDate:  dateRange.Start,
			CheckoutDate: dateRange.End,
			Guests:       reqItem.Guests,
			UnitPrice:    homestay.PricePerNight,
			Nights:       nights,
			LineTotal:    lineTotal,
			Metadata: gModel.Metadata{
				CreatedAt:  timezone.Now(),
				ModifiedAt: timezone.Now(),
				CreatedBy:  user,
				ModifiedBy: user,
			},
		})
	}

	return items, subtotal, nil
}

func (s *serviceImpl) GetMine(ctx context.Context, params gDto.QueryParams) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetMine")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(user, model.FieldUserID, model.TableName)

	cacheKey := shared.BuildCacheKeyWithQuery(shared.BuildCacheKey(cacheMineBooking, user), params, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for my bookings")

		return res, nil
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	models, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total, params.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, items, err := s.loadBooking(ctx, id)
	if err != nil {
		return res, err
	}

	if err = s.authorizeRead(ctx, booking, items); err != nil {
		return res, err
	}

	res.FromModel(booking, items)

	return res, nil
}

func (s *serviceImpl) loadBooking(ctx context.Context, id string) (model.Booking, []model.LineItem, error) {
	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return booking, nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return booking, nil, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	items, err := s.repo.GetLineItems(ctx, booking.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking line items")

		return booking, nil, fmt.Errorf("failed to get booking line items: %w", err)
	}

	return booking, items, nil
}

// authorizeRead lets the booker, the owner of any booked homestay, and
// admins see a booking.
func (s *serviceImpl) authorizeRead(ctx context.Context, booking model.Booking, items []model.LineItem) error {
	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	if role == constant.RoleAdmin || booking.UserID == user {
		return nil
	}

	if role == constant.RoleOwner {
		for _, item := range items {
			homestay, err := s.homestays.Get(ctx, shared.FilterByID(item.HomestayID, homestayModel.FieldID, homestayModel.TableName))
			if err != nil {
				return fmt.Errorf("failed to get homestay: %w", err)
			}

			if homestay.OwnerID == user {
				return nil
			}
		}
	}

	return failure.Forbidden("booking belongs to another user") // nolint:wrapcheck
}

// UpdateStatus applies one lifecycle transition with role and date guards.
func (s *serviceImpl) UpdateStatus(ctx context.Context, id, status string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".UpdateStatus")
	defer scope.End()
	defer scope.TraceIfError(err)

	if !model.ValidStatus(status) {
		return failure.BadRequestFromString("unknown booking status") // nolint:wrapcheck
	}

	booking, items, err := s.loadBooking(ctx, id)
	if err != nil {
		return err
	}

	if err = s.authorizeTransition(ctx, booking, items, status); err != nil {
		return err
	}

	if !model.CanTransition(booking.Status, status) {
		return failure.Conflict(fmt.Sprintf("cannot transition booking from %s to %s", booking.Status, status)) // nolint:wrapcheck
	}

	latestCheckout := latestCheckoutDate(items)

	if status == model.StatusCompleted && timezone.Now().Before(latestCheckout) {
		return failure.Conflict("booking cannot be completed before its checkout date") // nolint:wrapcheck
	}

	if status == model.StatusCancelled && !latestCheckout.IsZero() && timezone.Now().After(latestCheckout) {
		return failure.Conflict("booking cannot be cancelled after its checkout date") // nolint:wrapcheck
	}

	return s.applyTransition(ctx, booking, items, status)
}

func (s *serviceImpl) applyTransition(ctx context.Context, booking model.Booking, items []model.LineItem, status string) error {
	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	if user == constant.Empty {
		user = "system"
	}

	fields := map[string]any{
		model.FieldStatus:        status,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: user,
	}

	// Leaving pending_payment releases the hold either way.
	if booking.Status == model.StatusPendingPayment {
		fields[model.FieldExpiresAt] = nil
	}

	// Guarded on the status we authorized against, so a concurrent writer
	// (another transition, the expiry sweeper) cannot be silently overwritten.
	claimed, err := s.repo.TransitionStatus(ctx, booking.ID, booking.Status, fields)
	if err != nil {
		log.Error().Err(err).Msg("failed to update booking status")

		return fmt.Errorf("failed to update booking status: %w", err)
	}

	if !claimed {
		return failure.Conflict("booking status changed concurrently, retry") // nolint:wrapcheck
	}

	if status == model.StatusConfirmed || status == model.StatusPaid {
		s.publishNotification(ctx, booking, status)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		for _, item := range items {
			shared.InvalidateCaches(c, s.cache, shared.BuildCacheKey(cacheAvailability, item.HomestayID))
		}

		shared.InvalidateCaches(c, s.cache, cacheMineBooking)
	}()

	return nil
}

func (s *serviceImpl) publishNotification(ctx context.Context, booking model.Booking, status string) {
	event := NotificationEvent{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		Status:    status,
		Total:     booking.TotalPrice,
		At:        timezone.Now().Format(constant.DateFormat),
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.kafka.SendMessages(c, constant.KafkaTopicBookingNotifications, kafka.Message{
			Key:   booking.ID,
			Value: event,
		}); err != nil {
			log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to publish booking notification")
		}
	}()
}

// authorizeTransition enforces who may move a booking where. Customers may
// only cancel their own bookings; owners confirm, cancel or complete
// bookings on their homestays; admins may do anything.
func (s *serviceImpl) authorizeTransition(ctx context.Context, booking model.Booking, items []model.LineItem, status string) error {
	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	switch role {
	case constant.RoleAdmin:
		return nil
	case constant.RoleOwner:
		if err := s.authorizeRead(ctx, booking, items); err != nil {
			return err
		}

		switch status {
		case model.StatusConfirmed, model.StatusCancelled, model.StatusCompleted:
			return nil
		}

		return failure.Forbidden("owners may only confirm, cancel or complete bookings") // nolint:wrapcheck
	default:
		if booking.UserID != user {
			return failure.Forbidden("booking belongs to another user") // nolint:wrapcheck
		}

		if status != model.StatusCancelled {
			return failure.Forbidden("customers may only cancel their bookings") // nolint:wrapcheck
		}

		return nil
	}
}

func (s *serviceImpl) UpdateNote(ctx context.Context, id, note string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".UpdateNote")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	booking, _, err := s.loadBooking(ctx, id)
	if err != nil {
		return err
	}

	if role != constant.RoleAdmin && booking.UserID != user {
		return failure.Forbidden("booking belongs to another user") // nolint:wrapcheck
	}

	fields := map[string]any{
		model.FieldNote:          note,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: user,
	}

	if err := s.repo.Update(ctx, fields, shared.FilterByID(booking.ID, model.FieldID, model.TableName)); err != nil {
		log.Error().Err(err).Msg("failed to update booking note")

		return fmt.Errorf("failed to update booking note: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cacheMineBooking)
	}()

	return nil
}

// UnavailableRanges serves merged occupied windows for a homestay,
// cache-aside per homestay and window.
func (s *serviceImpl) UnavailableRanges(ctx context.Context, homestayID, from, to string) (res dto.UnavailableRangesResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".UnavailableRanges")
	defer scope.End()
	defer scope.TraceIfError(err)

	fromDate, err := timezone.Parse(constant.DateOnlyFormat, from)
	if err != nil {
		return res, failure.BadRequestFromString("invalid from date") // nolint:wrapcheck
	}

	toDate, err := timezone.Parse(constant.DateOnlyFormat, to)
	if err != nil {
		return res, failure.BadRequestFromString("invalid to date") // nolint:wrapcheck
	}

	if !toDate.After(fromDate) {
		return res, failure.BadRequestFromString("to date must be after from date") // nolint:wrapcheck
	}

	exist, err := s.homestays.Exist(ctx, shared.FilterByID(homestayID, homestayModel.FieldID, homestayModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to check homestay existence")

		return res, fmt.Errorf("failed to check homestay existence: %w", err)
	}

	if !exist {
		return res, failure.NotFound("homestay not found") // nolint:wrapcheck
	}

	cacheKey := shared.BuildCacheKey(cacheAvailability, homestayID, from, to)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for unavailable ranges")

		return res, nil
	}

	ranges, err := s.repo.ListBlockedRanges(ctx, homestayID, fromDate, toDate)
	if err != nil {
		log.Error().Err(err).Msg("failed to list blocked ranges")

		return res, fmt.Errorf("failed to list blocked ranges: %w", err)
	}

	res.HomestayID = homestayID
	res.Ranges = ranges

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save unavailable ranges to cache")
		}
	}()

	return res, nil
}

// ExpireStale cancels lapsed pending_payment holds.
func (s *serviceImpl) ExpireStale(ctx context.Context) (count int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ExpireStale")
	defer scope.End()
	defer scope.TraceIfError(err)

	count, err = s.repo.ExpirePendingPayments(ctx, timezone.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to expire stale holds")

		return 0, fmt.Errorf("failed to expire stale holds: %w", err)
	}

	if count > 0 {
		log.Info().Int("count", count).Msg("cancelled expired payment holds")

		go func() {
			c := context.WithoutCancel(ctx)

			shared.InvalidateCaches(c, s.cache, cacheAvailability)
			shared.InvalidateCaches(c, s.cache, cacheMineBooking)
		}()
	}

	return count, nil
}

// StartExpirySweeper runs ExpireStale on a ticker until the context ends.
func (s *serviceImpl) StartExpirySweeper(ctx context.Context) {
	interval := time.Duration(s.cfg.Booking.SweepIntervalSeconds) * time.Second

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("booking expiry sweeper started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("booking expiry sweeper stopped")

				return
			case <-ticker.C:
				if _, err := s.ExpireStale(ctx); err != nil {
					log.Error().Err(err).Msg("expiry sweep failed")
				}
			}
		}
	}()
}

func latestCheckoutDate(items []model.LineItem) time.Time {
	var latest time.Time

	for _, item := range items {
		if item.CheckoutDate.After(latest) {
			latest = item.CheckoutDate
		}
	}

	return latest
}
