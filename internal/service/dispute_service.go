package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/service-marketplace/internal/logger"
	"github.com/ignatzorin/service-marketplace/internal/models"
	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/service-marketplace/internal/repository"
)

// DisputeReader - чтение споров вне транзакций.
type DisputeReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	List(ctx context.Context, filter models.DisputeFilter) ([]models.Dispute, int, error)
	EscalateStale(ctx context.Context, before, now time.Time) ([]models.Dispute, error)
}

// DisputeService - рассмотрение споров администратором.
type DisputeService struct {
	tx            TxRunner
	disputes      DisputeReader
	escalateAfter time.Duration
	sideEffects
}

func NewDisputeService(tx TxRunner, disputes DisputeReader, notifier Notifier, activity ActivityLogger, escalateAfter time.Duration) *DisputeService {
	return &DisputeService{
		tx:            tx,
		disputes:      disputes,
		escalateAfter: escalateAfter,
		sideEffects:   newSideEffects(notifier, activity),
	}
}

// List - клиент видит свои споры, исполнитель - споры по своим заказам, администратор - все.
func (s *DisputeService) List(ctx context.Context, caller Caller, status *vo.DisputeStatus, limit, offset int) ([]models.Dispute, int, error) {
	filter := models.DisputeFilter{Status: status, Limit: limit, Offset: offset}
	switch caller.Role {
	case vo.RoleCustomer:
		filter.CustomerID = &caller.UserID
	case vo.RoleVendor:
		filter.VendorID = &caller.UserID
	case vo.RoleAdmin:
	default:
		return nil, 0, apperror.ErrForbidden
	}
	return s.disputes.List(ctx, filter)
}

func (s *DisputeService) Get(ctx context.Context, caller Caller, id uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.disputes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && dispute.CustomerID != caller.UserID && dispute.VendorID != caller.UserID {
		return nil, apperror.ErrDisputeNotFound
	}
	return dispute, nil
}

// Review берёт спор в работу.
func (s *DisputeService) Review(ctx context.Context, caller Caller, id uuid.UUID) (*models.Dispute, error) {
	if !caller.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	now := s.now()
	var dispute *models.Dispute
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if dispute, err = tx.LockDispute(ctx, id); err != nil {
			return err
		}
		if dispute.Status != vo.DisputeStatusPending {
			return apperror.Conflict(fmt.Sprintf("спор в статусе %s нельзя взять в работу", dispute.Status))
		}
		dispute.Status = vo.DisputeStatusUnderReview
		dispute.UpdatedAt = now
		return tx.UpdateDispute(ctx, dispute)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, s.partiesNotice(dispute, "Спор на рассмотрении",
		fmt.Sprintf("Спор %s взят в работу администратором", dispute.DisputeNumber))...)
	s.logActivity(ctx, caller.UserID, "dispute.review", "Спор "+dispute.DisputeNumber+" взят в работу", models.ReferenceDispute, dispute.ID)

	return dispute, nil
}

// Resolve закрывает открытый спор решением refund или release и проводит деньги.
func (s *DisputeService) Resolve(ctx context.Context, caller Caller, id uuid.UUID, resolution vo.DisputeResolution, notes string) (*models.Dispute, error) {
	if !caller.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	if err := validateResolution(resolution, notes); err != nil {
		return nil, err
	}

	now := s.now()
	var dispute *models.Dispute
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if dispute, err = tx.LockDispute(ctx, id); err != nil {
			return err
		}
		if !dispute.Status.IsOpen() {
			return apperror.Conflict("спор уже закрыт")
		}
		order, err := tx.LockOrder(ctx, dispute.OrderID)
		if err != nil {
			return err
		}

		if err := s.settle(ctx, tx, caller, order, resolution, notes, now); err != nil {
			return err
		}

		closeDispute(dispute, vo.DisputeStatusResolved, &resolution, notes, caller.UserID, now)
		return tx.UpdateDispute(ctx, dispute)
	})
	if err != nil {
		return nil, err
	}

	body := fmt.Sprintf("Спор %s решён: %s. %s", dispute.DisputeNumber, resolutionLabel(resolution), notes)
	s.notify(ctx, s.partiesNotice(dispute, "Спор решён", body)...)
	s.logActivity(ctx, caller.UserID, "dispute.resolved", "Спор "+dispute.DisputeNumber+" решён: "+string(resolution), models.ReferenceDispute, dispute.ID)

	return dispute, nil
}

// settle проводит последствия решения по заказу и журналу в той же транзакции.
func (s *DisputeService) settle(ctx context.Context, tx repository.Tx, caller Caller, order *models.Order, resolution vo.DisputeResolution, notes string, now time.Time) error {
	earned, err := tx.HasEarning(ctx, order.ID, order.VendorID)
	if err != nil {
		return err
	}

	switch resolution {
	case vo.ResolutionRefund:
		order.PaymentStatus = vo.PaymentStatusRefunded
		if err := changeOrderStatus(ctx, tx, order, vo.OrderStatusRefunded, caller.UserID, &notes, now); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, ledgerEntry(
			order.CustomerID, vo.TransactionTypeCredit, vo.CategoryRefund, order.Price, vo.TransactionStatusCompleted,
			models.ReferenceOrder, order.ID, "Возврат по спору, заказ "+order.OrderNumber, now,
		)); err != nil {
			return err
		}
		if !earned {
			return nil
		}
		return tx.InsertTransaction(ctx, ledgerEntry(
			order.VendorID, vo.TransactionTypeDebit, vo.CategoryRefund, order.Price, vo.TransactionStatusCompleted,
			models.ReferenceOrder, order.ID, "Списание заработка по спору, заказ "+order.OrderNumber, now,
		))

	case vo.ResolutionRelease:
		if order.CompletedAt == nil {
			completed := now
			order.CompletedAt = &completed
		}
		if err := changeOrderStatus(ctx, tx, order, vo.OrderStatusCompleted, caller.UserID, &notes, now); err != nil {
			return err
		}
		if earned {
			return nil
		}
		return tx.InsertTransaction(ctx, earningEntry(order, now))
	}

	return apperror.Validation(map[string]string{"resolution": "допустимые значения: refund release"})
}

// Reject отклоняет спор; заказ возвращается в состояние до спора.
func (s *DisputeService) Reject(ctx context.Context, caller Caller, id uuid.UUID, notes string) (*models.Dispute, error) {
	if !caller.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	if strings.TrimSpace(notes) == "" {
		return nil, apperror.Validation(map[string]string{"notes": "обязательное поле"})
	}

	now := s.now()
	var dispute *models.Dispute
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if dispute, err = tx.LockDispute(ctx, id); err != nil {
			return err
		}
		if !dispute.Status.IsOpen() {
			return apperror.Conflict("спор уже закрыт")
		}
		order, err := tx.LockOrder(ctx, dispute.OrderID)
		if err != nil {
			return err
		}

		back := vo.OrderStatusConfirmed
		if order.CompletedAt != nil {
			back = vo.OrderStatusCompleted
		}
		if order.Status == vo.OrderStatusDisputed {
			if err := changeOrderStatus(ctx, tx, order, back, caller.UserID, &notes, now); err != nil {
				return err
			}
		}

		closeDispute(dispute, vo.DisputeStatusRejected, nil, notes, caller.UserID, now)
		return tx.UpdateDispute(ctx, dispute)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, s.partiesNotice(dispute, "Спор отклонён",
		fmt.Sprintf("Спор %s отклонён. %s", dispute.DisputeNumber, notes))...)
	s.logActivity(ctx, caller.UserID, "dispute.rejected", "Спор "+dispute.DisputeNumber+" отклонён", models.ReferenceDispute, dispute.ID)

	return dispute, nil
}

// EscalateStale переводит в under_review споры, ожидающие дольше escalateAfter.
func (s *DisputeService) EscalateStale(ctx context.Context) (int, error) {
	now := s.now()
	escalated, err := s.disputes.EscalateStale(ctx, now.Add(-s.escalateAfter), now)
	if err != nil {
		return 0, err
	}

	for i := range escalated {
		d := &escalated[i]
		s.logActivity(ctx, uuid.Nil, "dispute.escalated",
			"Спор "+d.DisputeNumber+" автоматически передан на рассмотрение", models.ReferenceDispute, d.ID)
	}
	if len(escalated) > 0 {
		logger.WithComponent("dispute").WithFields(logrus.Fields{
			"count":  len(escalated),
			"before": now.Add(-s.escalateAfter),
		}).Info("споры переданы на рассмотрение")
	}

	return len(escalated), nil
}

func (s *DisputeService) partiesNotice(d *models.Dispute, title, body string) []notice {
	return []notice{
		{userID: d.CustomerID, title: title, body: body, category: models.NotificationCategoryDispute, metadata: disputeMeta(d), sendEmail: true},
		{userID: d.VendorID, title: title, body: body, category: models.NotificationCategoryDispute, metadata: disputeMeta(d), sendEmail: true},
	}
}

func validateResolution(resolution vo.DisputeResolution, notes string) error {
	fields := map[string]string{}
	if resolution != vo.ResolutionRefund && resolution != vo.ResolutionRelease {
		fields["resolution"] = "допустимые значения: refund release"
	}
	if strings.TrimSpace(notes) == "" {
		fields["notes"] = "обязательное поле"
	}
	if len(fields) > 0 {
		return apperror.Validation(fields)
	}
	return nil
}

// closeDispute выставляет статус и отметку о закрытии вместе.
func closeDispute(d *models.Dispute, status vo.DisputeStatus, resolution *vo.DisputeResolution, notes string, by uuid.UUID, now time.Time) {
	resolvedBy, resolvedAt := by, now
	d.Status = status
	d.Resolution = resolution
	d.ResolutionNotes = &notes
	d.ResolvedBy = &resolvedBy
	d.ResolvedAt = &resolvedAt
	d.UpdatedAt = now
}

func resolutionLabel(r vo.DisputeResolution) string {
	if r == vo.ResolutionRefund {
		return "средства возвращены клиенту"
	}
	return "средства переведены исполнителю"
}
