package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/joaomjbraga/shipment-management/internal/auth"
	"github.com/joaomjbraga/shipment-management/internal/domain"
	"github.com/joaomjbraga/shipment-management/internal/events"
	"github.com/joaomjbraga/shipment-management/internal/repository"
	apperrors "github.com/joaomjbraga/shipment-management/pkg/util/errorutil"
)

const (
	transitionAccepted = "accepted"
	transitionRejected = "rejected"
)

// TransitionRecorder counts status change attempts.
type TransitionRecorder interface {
	RecordTransition(to, outcome string)
}

// DeliveryService coordinates the delivery lifecycle.
type DeliveryService struct {
	deliveries repository.DeliveryRepository
	logs       repository.DeliveryLogRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	metrics    TransitionRecorder
	logger     *zap.Logger
}

// DeliveryDependencies bundles collaborators for the delivery service.
type DeliveryDependencies struct {
	DeliveryRepo repository.DeliveryRepository
	LogRepo      repository.DeliveryLogRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
	Metrics      TransitionRecorder
	Logger       *zap.Logger
}

// DeliveryCreateInput describes a new delivery.
type DeliveryCreateInput struct {
	UserID      string
	Description string
}

// DeliveryLogInput describes a manual journal entry.
type DeliveryLogInput struct {
	DeliveryID  string
	Description string
}

// NewDeliveryService constructs the service.
func NewDeliveryService(deps DeliveryDependencies) *DeliveryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliveryService{
		deliveries: deps.DeliveryRepo,
		logs:       deps.LogRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Create registers a delivery in status processing. Role checks happen at the
// route; here a customer is limited to deliveries for themselves.
func (s *DeliveryService) Create(ctx context.Context, actor domain.Identity, input DeliveryCreateInput) (*domain.Delivery, error) {
	if _, err := s.users.GetByID(ctx, input.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("User")
		}
		return nil, err
	}
	if actor.Role == domain.RoleCustomer && !auth.CanActOn(&actor, input.UserID) {
		return nil, apperrors.NewForbidden("You can only create deliveries for yourself.")
	}

	delivery := &domain.Delivery{
		UserID:      input.UserID,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.DeliveryStatusProcessing,
	}
	if err := s.deliveries.Create(ctx, delivery); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:       events.EventDeliveryCreated,
		DeliveryID: delivery.ID,
		Actor:      events.ActorFrom(actor),
		Payload: events.DeliveryCreatedPayload{
			UserID:      delivery.UserID,
			Description: delivery.Description,
			Status:      delivery.Status,
		},
	})
	return delivery, nil
}

// List returns every delivery with its owner summary, newest first.
func (s *DeliveryService) List(ctx context.Context) ([]domain.DeliveryWithOwner, error) {
	return s.deliveries.ListWithOwner(ctx)
}

// UpdateStatus advances a delivery by one step and journals the change.
// Rejected requests leave both the delivery and its log untouched.
func (s *DeliveryService) UpdateStatus(ctx context.Context, actor domain.Identity, id string, requested domain.DeliveryStatus) (*domain.Delivery, error) {
	current, err := s.getDelivery(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateTransition(current.Status, requested); err != nil {
		s.recordTransition(requested, transitionRejected)
		return nil, apperrors.NewInvalidTransition(err)
	}

	updated, entry, err := s.deliveries.TransitionStatus(ctx, id, current.Status, requested)
	switch {
	case errors.Is(err, repository.ErrStatusChanged):
		// another writer moved the delivery between read and update
		latest, getErr := s.getDelivery(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		s.recordTransition(requested, transitionRejected)
		return nil, apperrors.NewInvalidTransition(&domain.TransitionError{Current: latest.Status, Requested: requested})
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NewNotFound("Delivery")
	case err != nil:
		return nil, err
	}

	s.recordTransition(requested, transitionAccepted)
	s.publishEvent(ctx, events.Event{
		Type:       events.EventDeliveryStatusChanged,
		DeliveryID: id,
		Actor:      events.ActorFrom(actor),
		Payload: events.DeliveryStatusChangedPayload{
			OldStatus: current.Status,
			NewStatus: updated.Status,
			LogID:     entry.ID,
		},
	})
	return updated, nil
}

// AddLog appends a free-text entry. Only shipped deliveries accept manual entries;
// the status is checked again by the store at write time.
func (s *DeliveryService) AddLog(ctx context.Context, actor domain.Identity, input DeliveryLogInput) (*domain.DeliveryLog, error) {
	delivery, err := s.getDelivery(ctx, input.DeliveryID)
	if err != nil {
		return nil, err
	}
	if err := manualLogRejection(delivery.Status); err != nil {
		return nil, err
	}

	entry := &domain.DeliveryLog{
		DeliveryID:  delivery.ID,
		Description: strings.TrimSpace(input.Description),
	}
	err = s.logs.CreateIfStatus(ctx, entry, domain.DeliveryStatusShipped)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NewNotFound("Delivery")
	case errors.Is(err, repository.ErrStatusChanged):
		latest, err := s.getDelivery(ctx, delivery.ID)
		if err != nil {
			return nil, err
		}
		if rejection := manualLogRejection(latest.Status); rejection != nil {
			return nil, rejection
		}
		// statuses only move forward, so a lost race means delivered
		return nil, manualLogRejection(domain.DeliveryStatusDelivered)
	case err != nil:
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:       events.EventDeliveryLogAdded,
		DeliveryID: delivery.ID,
		Actor:      events.ActorFrom(actor),
		Payload: events.DeliveryLogAddedPayload{
			LogID:       entry.ID,
			Description: entry.Description,
		},
	})
	return entry, nil
}

// ShowWithLogs returns a delivery with its log, oldest entry first.
// Sellers see every delivery; customers only their own.
func (s *DeliveryService) ShowWithLogs(ctx context.Context, actor domain.Identity, id string) (*domain.Delivery, []domain.DeliveryLog, error) {
	delivery, err := s.getDelivery(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !auth.CanActOn(&actor, delivery.UserID) {
		return nil, nil, apperrors.NewForbidden("You can only view your own deliveries.")
	}
	entries, err := s.logs.ListByDelivery(ctx, delivery.ID)
	if err != nil {
		return nil, nil, err
	}
	return delivery, entries, nil
}

func manualLogRejection(status domain.DeliveryStatus) error {
	switch status {
	case domain.DeliveryStatusProcessing:
		return apperrors.NewDomainError("DELIVERY_NOT_SHIPPED", "change status to shipped", http.StatusBadRequest, nil)
	case domain.DeliveryStatusDelivered:
		return apperrors.NewDomainError("DELIVERY_CLOSED", "this order has already been delivered", http.StatusBadRequest, nil)
	}
	return nil
}

func (s *DeliveryService) getDelivery(ctx context.Context, id string) (*domain.Delivery, error) {
	delivery, err := s.deliveries.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("Delivery")
	}
	return delivery, err
}

func (s *DeliveryService) recordTransition(to domain.DeliveryStatus, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordTransition(string(to), outcome)
	}
}
