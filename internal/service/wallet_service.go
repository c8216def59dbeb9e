package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/service-marketplace/internal/domain/ledger"
	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/service-marketplace/internal/models"
	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/service-marketplace/internal/repository"
)

// TransactionReader - чтение журнала операций.
type TransactionReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)
	List(ctx context.Context, userID uuid.UUID, filter models.TransactionFilter) ([]models.Transaction, int, error)
}

// WalletService считает баланс по журналу и оформляет выплаты.
type WalletService struct {
	tx           TxRunner
	transactions TransactionReader
	sideEffects
}

func NewWalletService(tx TxRunner, transactions TransactionReader, notifier Notifier, activity ActivityLogger) *WalletService {
	return &WalletService{
		tx:           tx,
		transactions: transactions,
		sideEffects:  newSideEffects(notifier, activity),
	}
}

// Summary - показатели кошелька вызывающего.
func (s *WalletService) Summary(ctx context.Context, caller Caller) (ledger.Summary, error) {
	txs, err := s.transactions.ListByUser(ctx, caller.UserID)
	if err != nil {
		return ledger.Summary{}, err
	}
	return ledger.Summarize(txs), nil
}

func (s *WalletService) ListTransactions(ctx context.Context, caller Caller, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, apperror.Validation(map[string]string{"to": "дата окончания раньше даты начала"})
	}
	return s.transactions.List(ctx, caller.UserID, filter)
}

// RequestPayout создаёт заявку на вывод. Заявки одного пользователя сериализуются
// advisory lock, поэтому сумма заявок не превысит доступный баланс.
func (s *WalletService) RequestPayout(ctx context.Context, caller Caller, amount vo.Money) (*models.Transaction, error) {
	if caller.Role != vo.RoleVendor {
		return nil, apperror.Forbidden("выводить средства могут только исполнители")
	}
	if !amount.IsPositive() {
		return nil, apperror.Validation(map[string]string{"amount": "сумма должна быть больше нуля"})
	}

	now := s.now()
	var payout *models.Transaction
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		if err := tx.LockUserLedger(ctx, caller.UserID); err != nil {
			return err
		}
		txs, err := tx.ListUserTransactions(ctx, caller.UserID)
		if err != nil {
			return err
		}

		withdrawable := ledger.Summarize(txs).Withdrawable()
		if amount.GreaterThan(withdrawable) {
			return apperror.Validation(map[string]string{
				"amount": fmt.Sprintf("доступно к выводу %s", vo.NewMoney(withdrawable)),
			})
		}

		refType, description := models.ReferencePayout, "Заявка на вывод средств"
		payout = &models.Transaction{
			UserID:        caller.UserID,
			Type:          vo.TransactionTypeDebit,
			Category:      vo.CategoryPayout,
			Amount:        amount,
			Status:        vo.TransactionStatusPending,
			ReferenceType: &refType,
			Description:   &description,
			CreatedAt:     now,
		}
		return tx.InsertTransaction(ctx, payout)
	})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, caller.UserID, "wallet.payout_requested", "Заявка на вывод "+amount.String(), models.ReferencePayout, payout.ID)

	return payout, nil
}

// UpdateTransactionStatus - администратор проводит или сторнирует запись в статусе pending.
func (s *WalletService) UpdateTransactionStatus(ctx context.Context, caller Caller, id uuid.UUID, status vo.TransactionStatus) (*models.Transaction, error) {
	if !caller.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	if status != vo.TransactionStatusCompleted && status != vo.TransactionStatusReversed {
		return nil, apperror.Validation(map[string]string{"status": "допустимые значения: completed reversed"})
	}

	now := s.now()
	var txn *models.Transaction
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if txn, err = tx.LockTransaction(ctx, id); err != nil {
			return err
		}
		if !txn.Status.CanTransitionTo(status) {
			return apperror.Conflict(fmt.Sprintf("статус записи %s изменить нельзя", txn.Status))
		}
		txn.Status = status
		txn.UpdatedAt = now
		return tx.UpdateTransactionStatus(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	if txn.Category == vo.CategoryPayout {
		title := "Выплата проведена"
		if status == vo.TransactionStatusReversed {
			title = "Выплата отклонена"
		}
		s.notify(ctx, notice{
			userID:   txn.UserID,
			title:    title,
			body:     fmt.Sprintf("Заявка на вывод %s: %s", txn.Amount, status),
			category: models.NotificationCategoryWallet,
			metadata: map[string]any{"transaction_id": txn.ID, "status": txn.Status},
		})
	}
	s.logActivity(ctx, caller.UserID, "wallet.transaction_"+string(status), "Изменён статус записи журнала", "transaction", txn.ID)

	return txn, nil
}
