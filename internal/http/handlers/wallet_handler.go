package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/service-marketplace/internal/domain/ledger"
	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/service-marketplace/internal/dto"
	"github.com/ignatzorin/service-marketplace/internal/http/handlers/common"
	"github.com/ignatzorin/service-marketplace/internal/http/response"
	"github.com/ignatzorin/service-marketplace/internal/models"
	"github.com/ignatzorin/service-marketplace/internal/service"
	"github.com/ignatzorin/service-marketplace/internal/validation"
)

type WalletService interface {
	Summary(ctx context.Context, caller service.Caller) (ledger.Summary, error)
	ListTransactions(ctx context.Context, caller service.Caller, filter models.TransactionFilter) ([]models.Transaction, int, error)
	RequestPayout(ctx context.Context, caller service.Caller, amount vo.Money) (*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, caller service.Caller, id uuid.UUID, status vo.TransactionStatus) (*models.Transaction, error)
}

// WalletHandler обслуживает кошелёк и журнал операций.
type WalletHandler struct {
	wallet WalletService
	paging common.Paging
}

func NewWalletHandler(wallet WalletService, paging common.Paging) *WalletHandler {
	return &WalletHandler{wallet: wallet, paging: paging}
}

// GetSummary обрабатывает GET /wallet/summary.
func (h *WalletHandler) GetSummary(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	summary, err := h.wallet.Summary(c.Request.Context(), caller)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, "сводка кошелька", summary)
}

// ListTransactions обрабатывает GET /wallet/transactions?type=&category=&status=&from=&to=.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	v := validation.New()
	page := h.paging.ParsePage(c, v)
	filter := transactionFilter(c, v)
	if err := v.Err(); err != nil {
		_ = c.Error(err)
		return
	}
	filter.Limit, filter.Offset = page.PerPage, page.Offset()

	txs, total, err := h.wallet.ListTransactions(c.Request.Context(), caller, filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Paginated(c, "операции", txs, page.Number, page.PerPage, total)
}

// RequestPayout обрабатывает POST /wallet/payouts.
func (h *WalletHandler) RequestPayout(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req dto.PayoutRequest
	v := common.BindJSON(c, &req)
	amount := req.Money(v)
	if err := v.Err(); err != nil {
		_ = c.Error(err)
		return
	}

	payout, err := h.wallet.RequestPayout(c.Request.Context(), caller, amount)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Created(c, "заявка на вывод создана", payout)
}

// UpdateTransactionStatus обрабатывает PATCH /admin/transactions/:id/status.
func (h *WalletHandler) UpdateTransactionStatus(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req dto.UpdateTransactionStatusRequest
	if err := common.BindJSON(c, &req).Err(); err != nil {
		_ = c.Error(err)
		return
	}

	txn, err := h.wallet.UpdateTransactionStatus(c.Request.Context(), caller, id, vo.TransactionStatus(req.Status))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, "статус операции изменён", txn)
}

// transactionFilter разбирает фильтры журнала; ошибочные значения попадают в v.
func transactionFilter(c *gin.Context, v *validation.Errors) models.TransactionFilter {
	var f models.TransactionFilter

	if raw, ok := c.GetQuery("type"); ok {
		if t := vo.TransactionType(raw); t.IsValid() {
			f.Type = &t
		} else {
			v.Add("type", "допустимые значения: credit debit")
		}
	}
	if raw, ok := c.GetQuery("category"); ok {
		if cat := vo.TransactionCategory(raw); cat.IsValid() {
			f.Category = &cat
		} else {
			v.Add("category", "неизвестная категория")
		}
	}
	if raw, ok := c.GetQuery("status"); ok {
		if s := vo.TransactionStatus(raw); s.IsValid() {
			f.Status = &s
		} else {
			v.Add("status", "допустимые значения: pending completed reversed")
		}
	}
	f.From = queryDate(c, v, "from")
	f.To = queryDate(c, v, "to")
	return f
}

func queryDate(c *gin.Context, v *validation.Errors, key string) *time.Time {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	return v.Date(key, &raw)
}
