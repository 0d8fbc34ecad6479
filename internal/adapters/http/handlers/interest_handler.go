// Package handlers - Interest account HTTP handlers.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Haleralex/ledgerhub/internal/adapters/http/common"
	"github.com/Haleralex/ledgerhub/internal/application/dtos"
)

// ============================================
// Use Case Interfaces
// ============================================

// CreateAccountUseCase - интерфейс для создания процентного счёта.
type CreateAccountUseCase interface {
	Execute(ctx context.Context, cmd dtos.CreateAccountCommand) (*dtos.AccountDTO, error)
}

// GetAccountUseCase - интерфейс для получения счёта.
type GetAccountUseCase interface {
	Execute(ctx context.Context, query dtos.GetAccountQuery) (*dtos.AccountDTO, error)
}

// CalculateDailyInterestUseCase - интерфейс начисления за один день.
type CalculateDailyInterestUseCase interface {
	Execute(ctx context.Context, cmd dtos.CalculateDailyInterestCommand) (*dtos.InterestCalculationDTO, error)
}

// CalculateInterestRangeUseCase - интерфейс начисления за диапазон дней.
type CalculateInterestRangeUseCase interface {
	Execute(ctx context.Context, cmd dtos.CalculateInterestRangeCommand) (*dtos.InterestRangeDTO, error)
}

// ListInterestHistoryUseCase - интерфейс истории начислений.
type ListInterestHistoryUseCase interface {
	Execute(ctx context.Context, query dtos.ListInterestHistoryQuery) (*dtos.InterestHistoryDTO, error)
}

// ============================================
// Interest Handler
// ============================================

// defaultHistoryLimit - limit по умолчанию для истории начислений.
const defaultHistoryLimit = 30

// InterestHandler обрабатывает HTTP запросы для процентных счетов.
type InterestHandler struct {
	createAccount  CreateAccountUseCase
	getAccount     GetAccountUseCase
	calculateDaily CalculateDailyInterestUseCase
	calculateRange CalculateInterestRangeUseCase
	listHistory    ListInterestHistoryUseCase
}

// NewInterestHandler создаёт новый InterestHandler.
func NewInterestHandler(
	createAccount CreateAccountUseCase,
	getAccount GetAccountUseCase,
	calculateDaily CalculateDailyInterestUseCase,
	calculateRange CalculateInterestRangeUseCase,
	listHistory ListInterestHistoryUseCase,
) *InterestHandler {
	return &InterestHandler{
		createAccount:  createAccount,
		getAccount:     getAccount,
		calculateDaily: calculateDaily,
		calculateRange: calculateRange,
		listHistory:    listHistory,
	}
}

// ============================================
// Request DTOs
// ============================================

// CreateAccountRequest - запрос на создание процентного счёта.
//
// @Description Create interest account request body
type CreateAccountRequest struct {
	InitialBalance string `json:"initial_balance" binding:"omitempty,account_amount"`
}

// CalculateInterestRequest - запрос начисления за один день.
// Date опциональна: пустое значение означает сегодняшний день UTC.
//
// @Description Daily interest calculation request body
type CalculateInterestRequest struct {
	Date string `json:"date" binding:"omitempty,iso_date"`
}

// CalculateInterestRangeRequest - запрос начисления за диапазон дней.
//
// @Description Interest range calculation request body
type CalculateInterestRangeRequest struct {
	StartDate string `json:"start_date" binding:"required,iso_date"`
	EndDate   string `json:"end_date" binding:"required,iso_date"`
}

// AccountIDParam - параметр ID счёта из URL.
type AccountIDParam struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// ============================================
// HTTP Handlers
// ============================================

// CreateAccount создаёт новый процентный счёт.
//
// @Summary Create a new interest-bearing account
// @Description Create an account with an optional initial balance (scale 8)
// @Tags Interest
// @Accept json
// @Produce json
// @Param request body CreateAccountRequest true "Account data"
// @Success 201 {object} common.APIResponse{data=dtos.AccountDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/accounts [post]
func (h *InterestHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if !BindJSON(c, &req) {
		return
	}

	cmd := dtos.CreateAccountCommand{
		InitialBalance: req.InitialBalance,
	}

	result, err := h.createAccount.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusCreated, result)
}

// GetAccount возвращает счёт по ID.
//
// @Summary Get account by ID
// @Description Get interest account details by UUID
// @Tags Interest
// @Accept json
// @Produce json
// @Param id path string true "Account ID" format(uuid)
// @Success 200 {object} common.APIResponse{data=dtos.AccountDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/accounts/{id} [get]
func (h *InterestHandler) GetAccount(c *gin.Context) {
	var params AccountIDParam
	if !BindURI(c, &params) {
		return
	}

	query := dtos.GetAccountQuery{AccountID: params.ID}

	result, err := h.getAccount.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// CalculateInterest начисляет проценты за один календарный день.
//
// Начисление идемпотентно по (счёт, дата): первый вызов возвращает 201,
// повтор за ту же дату - 200 с исходной записью (is_new=false).
//
// @Summary Calculate daily interest
// @Description Apply daily compounding interest for a calendar date (defaults to today UTC)
// @Tags Interest
// @Accept json
// @Produce json
// @Param id path string true "Account ID" format(uuid)
// @Param request body CalculateInterestRequest true "Calculation date"
// @Success 201 {object} common.APIResponse{data=dtos.InterestCalculationDTO} "Interest applied"
// @Success 200 {object} common.APIResponse{data=dtos.InterestCalculationDTO} "Idempotent replay"
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse "Account not found"
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/accounts/{id}/interest [post]
func (h *InterestHandler) CalculateInterest(c *gin.Context) {
	var params AccountIDParam
	if !BindURI(c, &params) {
		return
	}

	// Тело опционально: POST без тела означает начисление за сегодня.
	var req CalculateInterestRequest
	if c.Request.ContentLength > 0 {
		if !BindJSON(c, &req) {
			return
		}
	}

	date := req.Date
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	cmd := dtos.CalculateDailyInterestCommand{
		AccountID: params.ID,
		Date:      date,
	}

	result, err := h.calculateDaily.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	status := http.StatusCreated
	if !result.IsNew {
		status = http.StatusOK
	}

	common.Success(c, status, result)
}

// CalculateInterestRange начисляет проценты за диапазон дней.
//
// @Summary Calculate interest for a date range
// @Description Apply daily interest for each day in the inclusive range, in order
// @Tags Interest
// @Accept json
// @Produce json
// @Param id path string true "Account ID" format(uuid)
// @Param request body CalculateInterestRangeRequest true "Date range"
// @Success 200 {object} common.APIResponse{data=dtos.InterestRangeDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse "Account not found"
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/accounts/{id}/interest/range [post]
func (h *InterestHandler) CalculateInterestRange(c *gin.Context) {
	var params AccountIDParam
	if !BindURI(c, &params) {
		return
	}

	var req CalculateInterestRangeRequest
	if !BindJSON(c, &req) {
		return
	}

	cmd := dtos.CalculateInterestRangeCommand{
		AccountID: params.ID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}

	result, err := h.calculateRange.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// ListInterestHistory возвращает историю начислений счёта.
//
// @Summary List interest history
// @Description Get paginated interest calculation history, newest first
// @Tags Interest
// @Accept json
// @Produce json
// @Param id path string true "Account ID" format(uuid)
// @Param offset query int false "Offset" default(0)
// @Param limit query int false "Limit" default(30) maximum(100)
// @Success 200 {object} common.APIResponse{data=dtos.InterestHistoryDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/accounts/{id}/interest [get]
func (h *InterestHandler) ListInterestHistory(c *gin.Context) {
	var params AccountIDParam
	if !BindURI(c, &params) {
		return
	}

	pagination := ParsePagination(c, defaultHistoryLimit)

	query := dtos.ListInterestHistoryQuery{
		AccountID: params.ID,
		Offset:    pagination.Offset,
		Limit:     pagination.Limit,
	}

	result, err := h.listHistory.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	meta := BuildMeta(pagination, len(result.Entries))
	common.SuccessWithMeta(c, http.StatusOK, result, meta)
}

// RegisterRoutes регистрирует маршруты для InterestHandler.
//
// Routes:
// - POST /accounts                    - Create account
// - GET  /accounts/:id                - Get account by ID
// - POST /accounts/:id/interest       - Calculate daily interest
// - POST /accounts/:id/interest/range - Calculate interest for range
// - GET  /accounts/:id/interest       - List interest history
func (h *InterestHandler) RegisterRoutes(router *gin.RouterGroup) {
	accounts := router.Group("/accounts")
	{
		accounts.POST("", h.CreateAccount)
		accounts.GET("/:id", h.GetAccount)
		accounts.POST("/:id/interest", h.CalculateInterest)
		accounts.POST("/:id/interest/range", h.CalculateInterestRange)
		accounts.GET("/:id/interest", h.ListInterestHistory)
	}
}
