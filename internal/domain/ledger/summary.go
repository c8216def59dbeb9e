// Package ledger считает сводные показатели кошелька по журналу операций.
package ledger

import (
	"github.com/shopspring/decimal"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/service-marketplace/internal/models"
)

// Summary - показатели кошелька. Суммы не округлены, округление делает vo.Money при выводе.
type Summary struct {
	AvailableBalance vo.Money `json:"available_balance"`
	TotalEarnings    vo.Money `json:"total_earnings"`
	TotalPayouts     vo.Money `json:"total_payouts"`
	PendingEarnings  vo.Money `json:"pending_earnings"`
	PendingPayouts   vo.Money `json:"pending_payouts"`
}

// Summarize - чистая функция над набором записей одного пользователя.
// Записи в статусе reversed не учитываются нигде.
func Summarize(txs []models.Transaction) Summary {
	var (
		credits         = decimal.Zero
		debits          = decimal.Zero
		earnings        = decimal.Zero
		payouts         = decimal.Zero
		pendingEarnings = decimal.Zero
		pendingPayouts  = decimal.Zero
	)

	for _, tx := range txs {
		amount := tx.Amount.Decimal
		switch tx.Status {
		case vo.TransactionStatusCompleted:
			if tx.Type == vo.TransactionTypeCredit {
				credits = credits.Add(amount)
				if tx.Category == vo.CategoryEarning {
					earnings = earnings.Add(amount)
				}
			} else {
				debits = debits.Add(amount)
				if tx.Category == vo.CategoryPayout {
					payouts = payouts.Add(amount)
				}
			}
		case vo.TransactionStatusPending:
			if tx.Type == vo.TransactionTypeCredit && tx.Category == vo.CategoryEarning {
				pendingEarnings = pendingEarnings.Add(amount)
			}
			if tx.Type == vo.TransactionTypeDebit && tx.Category == vo.CategoryPayout {
				pendingPayouts = pendingPayouts.Add(amount)
			}
		}
	}

	return Summary{
		AvailableBalance: vo.NewMoney(credits.Sub(debits)),
		TotalEarnings:    vo.NewMoney(earnings),
		TotalPayouts:     vo.NewMoney(payouts),
		PendingEarnings:  vo.NewMoney(pendingEarnings),
		PendingPayouts:   vo.NewMoney(pendingPayouts),
	}
}

// Withdrawable - сколько можно запросить на вывод: доступное минус уже запрошенные выплаты.
func (s Summary) Withdrawable() decimal.Decimal {
	return s.AvailableBalance.Decimal.Sub(s.PendingPayouts.Decimal)
}
