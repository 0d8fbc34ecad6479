// Package handlers - Transfer HTTP handlers.
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

// ExecuteTransferUseCase - интерфейс для идемпотентного перевода.
type ExecuteTransferUseCase interface {
	Execute(ctx context.Context, cmd dtos.ExecuteTransferCommand) (*dtos.TransferResultDTO, error)
}

// ============================================
// Transfer Handler
// ============================================

// TransferHandler обрабатывает HTTP запросы для переводов.
type TransferHandler struct {
	executeTransfer ExecuteTransferUseCase
}

// NewTransferHandler создаёт новый TransferHandler.
func NewTransferHandler(executeTransfer ExecuteTransferUseCase) *TransferHandler {
	return &TransferHandler{
		executeTransfer: executeTransfer,
	}
}

// ============================================
// Request DTOs
// ============================================

// ExecuteTransferRequest - запрос на перевод между кошельками.
//
// @Description Transfer request body
type ExecuteTransferRequest struct {
	FromWalletID   string `json:"from_wallet_id" binding:"required,uuid"`
	ToWalletID     string `json:"to_wallet_id" binding:"required,uuid"`
	Amount         string `json:"amount" binding:"required,money_amount"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=255"`
}

// ============================================
// HTTP Handlers
// ============================================

// ExecuteTransfer выполняет перевод между кошельками.
//
// Статус ответа различает первый вызов и replay: свежевыполненный
// перевод возвращает 201, повтор с тем же ключом идемпотентности - 200
// с исходным результатом. Replay FAILED-записи - это тоже 200: запрос
// обработан, а зафиксированный отказ лежит в data.success.
//
// @Summary Transfer funds between wallets
// @Description Idempotent transfer from one wallet to another
// @Tags Transfers
// @Accept json
// @Produce json
// @Param request body ExecuteTransferRequest true "Transfer data"
// @Success 201 {object} common.APIResponse{data=dtos.TransferResultDTO} "Transfer executed"
// @Success 200 {object} common.APIResponse{data=dtos.TransferResultDTO} "Idempotent replay"
// @Failure 400 {object} common.APIResponse "Validation, missing key, self transfer or insufficient funds"
// @Failure 404 {object} common.APIResponse "Wallet not found"
// @Failure 409 {object} common.APIResponse "Serialization retries exhausted"
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/transfers [post]
func (h *TransferHandler) ExecuteTransfer(c *gin.Context) {
	var req ExecuteTransferRequest
	if !BindJSON(c, &req) {
		return
	}

	cmd := dtos.ExecuteTransferCommand{
		FromWalletID:   req.FromWalletID,
		ToWalletID:     req.ToWalletID,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
	}

	result, err := h.executeTransfer.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	status := http.StatusCreated
	if result.IsIdempotent {
		status = http.StatusOK
	}

	common.Success(c, status, result)
}

// RegisterRoutes регистрирует маршруты для TransferHandler.
//
// Routes:
// - POST /transfers - Execute idempotent transfer
func (h *TransferHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/transfers", h.ExecuteTransfer)
}
