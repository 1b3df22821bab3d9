package promotion

import (
	"net/http"

	"greenstay/infras/otel"
	"greenstay/internal/domains/promotion/model"
	"greenstay/internal/domains/promotion/model/dto"
	"greenstay/internal/domains/promotion/service"
	"greenstay/shared/constant"
	gDto "greenstay/shared/dto"
	"greenstay/shared/validator"
	"greenstay/transport/http/response"

	"github.com/go-chi/chi/v5"

	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Promotion
	otel    otel.Otel
}

func New(service service.Promotion, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/promotions", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreatePromotion)
		routerGroup.Post("/validate", handler.ValidatePromotion)
		routerGroup.Get("/", handler.GetPromotions)
		routerGroup.Get("/{id}", handler.GetPromotionByID)
		routerGroup.Patch("/{id}", handler.UpdatePromotion)
		routerGroup.Delete("/{id}", handler.DeletePromotion)
	})
}

// CreatePromotion handles the creation of a new promotion.
// @Summary Create a new promotion
// @Description Create a new promotion code with the provided details.
// @Tags Promotion
// @Accept json
// @Produce json
// @Param request body dto.CreatePromotionRequest true "Create Promotion Request"
// @Success 201 {object} response.Message "Promotion created successfully"
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/promotions [post]
// @Security BearerAuth
func (handler *Handler) CreatePromotion(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreatePromotion")
	defer scope.End()

	req := dto.CreatePromotionRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	if err := handler.service.Create(ctx, req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create promotion")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Promotion created successfully by user " + user)

	response.WithMessage(writer, http.StatusCreated, "Promotion created successfully")
}

// ValidatePromotion checks a promotion code against a subtotal.
// @Summary Validate a promotion code
// @Description Check whether a promotion code applies to the given order subtotal and compute its discount. Rejections come back as a valid=false body, not an error.
// @Tags Promotion
// @Accept json
// @Produce json
// @Param request body dto.ValidatePromotionRequest true "Validate Promotion Request"
// @Success 200 {object} response.Data[dto.ValidatePromotionResponse] "Validation verdict"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/promotions/validate [post]
// @Security BearerAuth
func (handler *Handler) ValidatePromotion(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ValidatePromotion")
	defer scope.End()

	req := dto.ValidatePromotionRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	verdict, err := handler.service.Validate(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate promotion")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Promotion validated")

	response.WithJSON(writer, http.StatusOK, verdict)
}

// GetPromotions retrieves all promotions based on query parameters.
// @Summary Get all promotions
// @Description Retrieve all promotions with optional filtering and pagination.
// @Tags Promotion
// @Accept json
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param code query string false "Filter by code"
// @Param active query boolean false "Filter by active flag"
// @Success 200 {object} response.Data[dto.GetPromotionsResponse] "List of promotions"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/promotions [get]
// @Security BearerAuth
func (handler *Handler) GetPromotions(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetPromotions")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters:  []any{},
	}

	if code := r.URL.Query().Get(model.FieldCode); code != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldCode,
			Operator: gDto.FilterOperatorLike,
			Value:    code,
			Table:    model.TableName,
		})
	}

	if active := r.URL.Query().Get(model.FieldActive); active != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldActive,
			Operator: gDto.FilterOperatorEq,
			Value:    active == "true",
			Table:    model.TableName,
		})
	}

	promotions, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get promotions")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Promotions retrieved successfully")

	response.WithJSON(w, http.StatusOK, promotions)
}

// GetPromotionByID retrieves a promotion by its ID.
// @Summary Get a promotion by ID
// @Description Retrieve a promotion by its unique identifier.
// @Tags Promotion
// @Accept json
// @Produce json
// @Param id path string true "Promotion ID"
// @Success 200 {object} response.Data[dto.PromotionResponse] "Promotion details"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/promotions/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetPromotionByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetPromotionByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	promotion, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get promotion by ID")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Promotion retrieved successfully")

	response.WithJSON(w, http.StatusOK, promotion)
}

// UpdatePromotion updates an existing promotion by its ID.
// @Summary Update a promotion by ID
// @Description Update the details of an existing promotion.
// @Tags Promotion
// @Accept json
// @Produce json
// @Param id path string true "Promotion ID"
// @Param request body dto.UpdatePromotionRequest true "Update Promotion Request"
// @Success 200 {object} response.Message "Promotion updated successfully"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/promotions/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdatePromotion(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdatePromotion")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	req := dto.UpdatePromotionRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	if err := handler.service.Update(ctx, req, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update promotion")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Promotion updated successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Promotion updated successfully")
}

// DeletePromotion deletes a promotion by its ID.
// @Summary Delete a promotion by ID
// @Description Delete a promotion using its unique identifier.
// @Tags Promotion
// @Accept json
// @Produce json
// @Param id path string true "Promotion ID"
// @Success 200 {object} response.Message "Promotion deleted successfully"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/promotions/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeletePromotion")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	if err := handler.service.Delete(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete promotion")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Promotion deleted successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Promotion deleted successfully")
}
