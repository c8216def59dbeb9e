// Package scheduler запускает периодические задачи по расписанию cron.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/service-marketplace/internal/logger"
)

// DisputeEscalator переводит зависшие споры на рассмотрение.
type DisputeEscalator interface {
	EscalateStale(ctx context.Context) (int, error)
}

// Scheduler - обёртка над cron с расписанием в UTC и точностью до секунд.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

// New регистрирует задачи. Некорректное выражение cron - ошибка конфигурации.
func New(escalationSpec string, escalator DisputeEscalator) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		timeout: time.Minute,
	}

	if _, err := s.cron.AddFunc(escalationSpec, s.escalationJob(escalator)); err != nil {
		return nil, fmt.Errorf("scheduler: dispute escalation %q %w", escalationSpec, err)
	}
	return s, nil
}

// escalationJob - один прогон эскалации с ограничением по времени.
func (s *Scheduler) escalationJob(escalator DisputeEscalator) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		log := logger.WithComponent("scheduler").WithField("job", "dispute_escalation")
		started := time.Now()
		n, err := escalator.EscalateStale(ctx)
		if err != nil {
			log.WithError(err).Error("задача завершилась с ошибкой")
			return
		}
		log.WithFields(logrus.Fields{
			"escalated": n,
			"duration":  time.Since(started).String(),
		}).Debug("задача выполнена")
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.WithComponent("scheduler").WithField("jobs", len(s.cron.Entries())).Info("планировщик запущен")
}

// Stop дожидается завершения выполняющихся задач.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.WithComponent("scheduler").Info("планировщик остановлен")
}
