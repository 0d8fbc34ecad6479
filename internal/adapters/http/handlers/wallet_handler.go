// Package handlers - Wallet HTTP handlers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Haleralex/ledgerhub/internal/adapters/http/common"
	"github.com/Haleralex/ledgerhub/internal/application/dtos"
)

// ============================================
// Use Case Interfaces
// ============================================

// CreateWalletUseCase - интерфейс для создания кошелька.
type CreateWalletUseCase interface {
	Execute(ctx context.Context, cmd dtos.CreateWalletCommand) (*dtos.WalletDTO, error)
}

// GetWalletUseCase - интерфейс для получения кошелька.
type GetWalletUseCase interface {
	Execute(ctx context.Context, query dtos.GetWalletQuery) (*dtos.WalletDTO, error)
}

// ListTransactionsUseCase - интерфейс для истории переводов кошелька.
type ListTransactionsUseCase interface {
	Execute(ctx context.Context, query dtos.ListWalletTransactionsQuery) (*dtos.TransactionListDTO, error)
}

// ListLedgerUseCase - интерфейс для ledger-истории кошелька.
type ListLedgerUseCase interface {
	Execute(ctx context.Context, query dtos.ListWalletLedgerQuery) (*dtos.LedgerListDTO, error)
}

// ============================================
// Wallet Handler
// ============================================

// defaultListLimit - limit по умолчанию для list-endpoints кошелька.
const defaultListLimit = 50

// WalletHandler обрабатывает HTTP запросы для кошельков.
type WalletHandler struct {
	createWallet     CreateWalletUseCase
	getWallet        GetWalletUseCase
	listTransactions ListTransactionsUseCase
	listLedger       ListLedgerUseCase
}

// NewWalletHandler создаёт новый WalletHandler.
func NewWalletHandler(
	createWallet CreateWalletUseCase,
	getWallet GetWalletUseCase,
	listTransactions ListTransactionsUseCase,
	listLedger ListLedgerUseCase,
) *WalletHandler {
	return &WalletHandler{
		createWallet:     createWallet,
		getWallet:        getWallet,
		listTransactions: listTransactions,
		listLedger:       listLedger,
	}
}

// ============================================
// Request DTOs
// ============================================

// CreateWalletRequest - запрос на создание кошелька.
//
// @Description Create wallet request body
type CreateWalletRequest struct {
	InitialBalance string `json:"initial_balance" binding:"omitempty,money_amount"`
}

// WalletIDParam - параметр ID кошелька из URL.
type WalletIDParam struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// ============================================
// HTTP Handlers
// ============================================

// CreateWallet создаёт новый кошелёк.
//
// @Summary Create a new wallet
// @Description Create a wallet with an optional initial balance
// @Tags Wallets
// @Accept json
// @Produce json
// @Param request body CreateWalletRequest true "Wallet data"
// @Success 201 {object} common.APIResponse{data=dtos.WalletDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/wallets [post]
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req CreateWalletRequest
	if !BindJSON(c, &req) {
		return
	}

	cmd := dtos.CreateWalletCommand{
		InitialBalance: req.InitialBalance,
	}

	result, err := h.createWallet.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusCreated, result)
}

// GetWallet возвращает кошелёк по ID.
//
// @Summary Get wallet by ID
// @Description Get wallet details by UUID
// @Tags Wallets
// @Accept json
// @Produce json
// @Param id path string true "Wallet ID" format(uuid)
// @Success 200 {object} common.APIResponse{data=dtos.WalletDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/wallets/{id} [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
	var params WalletIDParam
	if !BindURI(c, &params) {
		return
	}

	query := dtos.GetWalletQuery{WalletID: params.ID}

	result, err := h.getWallet.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// ListTransactions возвращает историю переводов кошелька.
//
// Кошелёк участвует в записи как отправитель или получатель;
// записи отсортированы от новых к старым.
//
// @Summary List wallet transactions
// @Description Get paginated transfer history for a wallet
// @Tags Wallets
// @Accept json
// @Produce json
// @Param id path string true "Wallet ID" format(uuid)
// @Param offset query int false "Offset" default(0)
// @Param limit query int false "Limit" default(50) maximum(100)
// @Success 200 {object} common.APIResponse{data=dtos.TransactionListDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/wallets/{id}/transactions [get]
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	var params WalletIDParam
	if !BindURI(c, &params) {
		return
	}

	pagination := ParsePagination(c, defaultListLimit)

	query := dtos.ListWalletTransactionsQuery{
		WalletID: params.ID,
		Offset:   pagination.Offset,
		Limit:    pagination.Limit,
	}

	result, err := h.listTransactions.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	meta := BuildMeta(pagination, len(result.Transactions))
	common.SuccessWithMeta(c, http.StatusOK, result, meta)
}

// ListLedger возвращает ledger-записи кошелька.
//
// @Summary List wallet ledger entries
// @Description Get paginated double-entry ledger history for a wallet
// @Tags Wallets
// @Accept json
// @Produce json
// @Param id path string true "Wallet ID" format(uuid)
// @Param offset query int false "Offset" default(0)
// @Param limit query int false "Limit" default(50) maximum(100)
// @Success 200 {object} common.APIResponse{data=dtos.LedgerListDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/wallets/{id}/ledger [get]
func (h *WalletHandler) ListLedger(c *gin.Context) {
	var params WalletIDParam
	if !BindURI(c, &params) {
		return
	}

	pagination := ParsePagination(c, defaultListLimit)

	query := dtos.ListWalletLedgerQuery{
		WalletID: params.ID,
		Offset:   pagination.Offset,
		Limit:    pagination.Limit,
	}

	result, err := h.listLedger.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	meta := BuildMeta(pagination, len(result.Entries))
	common.SuccessWithMeta(c, http.StatusOK, result, meta)
}

// RegisterRoutes регистрирует маршруты для WalletHandler.
//
// Routes:
// - POST   /wallets                  - Create wallet
// - GET    /wallets/:id              - Get wallet by ID
// - GET    /wallets/:id/transactions - List wallet transactions
// - GET    /wallets/:id/ledger       - List wallet ledger entries
func (h *WalletHandler) RegisterRoutes(router *gin.RouterGroup) {
	wallets := router.Group("/wallets")
	{
		wallets.POST("", h.CreateWallet)
		wallets.GET("/:id", h.GetWallet)
		wallets.GET("/:id/transactions", h.ListTransactions)
		wallets.GET("/:id/ledger", h.ListLedger)
	}
}
