// Package events decorates a data service so that every stored change is
// announced on the record-event queue.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"nomadfinance/internal/amqp"
	"nomadfinance/internal/log"
	"nomadfinance/internal/remote"
)

// Publisher sends record events. *amqp.Client satisfies it.
type Publisher interface {
	PublishRecordEvent(ctx context.Context, event *amqp.RecordEvent) error
	Close() error
}

// Service persists through the wrapped service first and publishes after a
// successful write. Publish failures are logged and never returned: the row
// is already stored.
type Service struct {
	remote.Service
	publisher Publisher
	logger    *log.Logger
}

func NewService(svc remote.Service, publisher Publisher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		Service:   svc,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentEvents),
	}
}

func (s *Service) InsertExpense(ctx context.Context, userID string, row remote.ExpenseRow) (remote.ExpenseRow, error) {
	stored, err := s.Service.InsertExpense(ctx, userID, row)
	if err != nil {
		return stored, err
	}
	s.publishCreated(ctx, remote.CollectionExpenses, userID, stored.ID, stored)
	return stored, nil
}

func (s *Service) InsertIncome(ctx context.Context, userID string, row remote.IncomeRow) (remote.IncomeRow, error) {
	stored, err := s.Service.InsertIncome(ctx, userID, row)
	if err != nil {
		return stored, err
	}
	s.publishCreated(ctx, remote.CollectionIncomes, userID, stored.ID, stored)
	return stored, nil
}

func (s *Service) InsertAsset(ctx context.Context, userID string, row remote.AssetRow) (remote.AssetRow, error) {
	stored, err := s.Service.InsertAsset(ctx, userID, row)
	if err != nil {
		return stored, err
	}
	s.publishCreated(ctx, remote.CollectionAssets, userID, stored.ID, stored)
	return stored, nil
}

func (s *Service) DeleteExpense(ctx context.Context, userID, id string) error {
	if err := s.Service.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.ActionDeleted, remote.CollectionExpenses, userID, id, nil))
	return nil
}

func (s *Service) DeleteIncome(ctx context.Context, userID, id string) error {
	if err := s.Service.DeleteIncome(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.ActionDeleted, remote.CollectionIncomes, userID, id, nil))
	return nil
}

func (s *Service) DeleteAsset(ctx context.Context, userID, id string) error {
	if err := s.Service.DeleteAsset(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.ActionDeleted, remote.CollectionAssets, userID, id, nil))
	return nil
}

func (s *Service) publishCreated(ctx context.Context, collection, userID, id string, row any) {
	body, err := json.Marshal(row)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode record for event",
			log.FieldCollection, collection, log.FieldRecordID, id, log.FieldError, err)
		return
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.ActionCreated, collection, userID, id, body))
}

func (s *Service) publish(ctx context.Context, event *amqp.RecordEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish record event",
			log.FieldCollection, event.Collection,
			log.FieldRecordID, event.RecordID,
			log.FieldUserID, event.UserID,
			log.FieldError, err)
	}
}

// Close closes the wrapped service and the publisher.
func (s *Service) Close() error {
	var errs []error
	if err := s.Service.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
