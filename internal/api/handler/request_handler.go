package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aurora-advisory/advisory-api/internal/api/metrics"
	"github.com/aurora-advisory/advisory-api/internal/core/domain"
	"github.com/aurora-advisory/advisory-api/internal/core/ports"
)

const (
	headerIdempotencyKey   = "Idempotency-Key"
	headerIdempotentReplay = "Idempotent-Replayed"
)

// RequestHandler handles HTTP requests for advisory request operations.
type RequestHandler struct {
	service ports.RequestService
}

func NewRequestHandler(service ports.RequestService) *RequestHandler {
	return &RequestHandler{service: service}
}

// Create handles POST /requests.
//
// @Summary      Open an advisory request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string                false  "Replays return the request created by the first call"
// @Param        body             body      createRequestRequest  true   "Request details"
// @Success      201              {object}  requestResponse
// @Success      200              {object}  requestResponse  "Idempotent replay"
// @Failure      400              {object}  ErrorResponse
// @Failure      401              {object}  ErrorResponse
// @Failure      403              {object}  ErrorResponse
// @Failure      409              {object}  ErrorResponse  "Same Idempotency-Key still in flight"
// @Router       /requests [post]
func (h *RequestHandler) Create(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req createRequestRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.service.CreateRequest(c.Request().Context(), caller, ports.CreateRequestInput{
		Goal:                req.Goal,
		Amount:              req.Amount,
		MonthlyContribution: req.MonthlyContribution,
		TimeHorizonYears:    req.TimeHorizonYears,
		RiskProfile:         req.RiskProfile,
		Notes:               req.Notes,
		IdempotencyKey:      c.Request().Header.Get(headerIdempotencyKey),
	})
	if err != nil {
		return err
	}

	if result.AlreadyExisted {
		metrics.IdempotentReplaysTotal.Inc()
		c.Response().Header().Set(headerIdempotentReplay, "true")
		return c.JSON(http.StatusOK, toRequestResponse(result.Request))
	}

	metrics.RequestsCreatedTotal.WithLabelValues(string(result.Request.RiskProfile)).Inc()
	return c.JSON(http.StatusCreated, toRequestResponse(result.Request))
}

// ListMine handles GET /requests/me.
//
// @Summary      List the caller's requests
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   requestResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /requests/me [get]
func (h *RequestHandler) ListMine(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	requests, err := h.service.ListMyRequests(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRequestResponses(requests))
}

// GetMine handles GET /requests/me/:id.
//
// @Summary      Get one of the caller's requests
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  requestResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /requests/me/{id} [get]
func (h *RequestHandler) GetMine(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	req, err := h.service.GetMyRequest(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRequestResponse(req))
}

// CancelMine handles PATCH /requests/me/:id. The body may only carry
// status "cancelled".
//
// @Summary      Cancel one of the caller's requests
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Request ID"
// @Param        body  body      cancelRequest  true  "Must be {\"status\":\"cancelled\"}"
// @Success      200   {object}  requestResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /requests/me/{id} [patch]
func (h *RequestHandler) CancelMine(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req cancelRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	return h.updateStatus(c, caller, req.Status)
}

// List handles GET /requests for advisors and admins.
//
// @Summary      List all requests
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Exact status filter"  Enums(pending, in_review, completed, cancelled)
// @Param        q       query     string  false  "Case-insensitive match on goal, notes or owner email"
// @Param        skip    query     int     false  "Items to skip"         default(0)
// @Param        limit   query     int     false  "Page size (max 200)"   default(25)
// @Success      200     {object}  listRequestsResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      401     {object}  ErrorResponse
// @Failure      403     {object}  ErrorResponse
// @Router       /requests [get]
func (h *RequestHandler) List(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var in ports.ListRequestsInput
	if err := echo.QueryParamsBinder(c).
		String("status", &in.Status).
		String("q", &in.Query).
		Int("skip", &in.Skip).
		Int("limit", &in.Limit).
		BindError(); err != nil {
		return domain.Validationf("skip and limit must be integers")
	}

	result, err := h.service.ListAllRequests(c.Request().Context(), caller, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListRequestsResponse(result))
}

// Stats handles GET /requests/stats.
//
// @Summary      Count requests per status
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  statsResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /requests/stats [get]
func (h *RequestHandler) Stats(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	stats, err := h.service.Stats(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toStatsResponse(stats))
}

// UpdateStatus handles PATCH /requests/:id for advisors and admins.
//
// @Summary      Set the status of any request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Request ID"
// @Param        body  body      statusUpdateRequest  true  "New status"
// @Success      200   {object}  requestResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /requests/{id} [patch]
func (h *RequestHandler) UpdateStatus(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req statusUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	return h.updateStatus(c, caller, req.Status)
}

func (h *RequestHandler) updateStatus(c echo.Context, caller domain.Caller, status string) error {
	updated, err := h.service.UpdateStatus(c.Request().Context(), caller, c.Param("id"), status)
	if err != nil {
		return err
	}

	if n := len(updated.History); n > 0 && updated.History[n-1].OldStatus != nil {
		last := updated.History[n-1]
		metrics.StatusTransitionsTotal.WithLabelValues(string(*last.OldStatus), string(last.NewStatus)).Inc()
	}
	return c.JSON(http.StatusOK, toRequestResponse(updated))
}

// History handles GET /requests/:id/history.
//
// @Summary      Status history of a request
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {array}   historyEntryResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /requests/{id}/history [get]
func (h *RequestHandler) History(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	history, err := h.service.GetHistory(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHistoryResponse(history))
}
