package service

import (
	"context"
	"log/slog"

	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/models"
	"github.com/hayekcoin/campus-wallet/internal/repository"
)

type EventService interface {
	CreateEvent(ctx context.Context, req *models.EventRequest) (*models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context, page, pageSize int) ([]*models.Event, int64, error)
	UpdateEvent(ctx context.Context, id string, req *models.EventRequest) (*models.Event, error)
	DeleteEvent(ctx context.Context, id string) error

	CreateBusiness(ctx context.Context, eventID string, req *models.BusinessRequest) (*models.Business, error)
	ListBusinesses(ctx context.Context, eventID string) ([]*models.Business, error)
	UpdateBusiness(ctx context.Context, id string, req *models.BusinessRequest) (*models.Business, error)
	DeleteBusiness(ctx context.Context, id string) error

	AddMember(ctx context.Context, businessID, userID string) (*models.BusinessMember, error)
	ListMembers(ctx context.Context, businessID string) ([]*models.BusinessMember, error)
	RemoveMember(ctx context.Context, businessID, userID string) error
}

type EventServiceImpl struct {
	eventRepo      repository.EventRepository
	userRepo       repository.UserRepository
	accountService AccountService
	symbol         string
	network        string
	logger         *slog.Logger
}

func NewEventService(eventRepo repository.EventRepository, userRepo repository.UserRepository, accountService AccountService, symbol, network string, logger *slog.Logger) *EventServiceImpl {
	return &EventServiceImpl{
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		accountService: accountService,
		symbol:         symbol,
		network:        network,
		logger:         logger,
	}
}

func (s *EventServiceImpl) CreateEvent(ctx context.Context, req *models.EventRequest) (*models.Event, error) {
	if req.Name == "" {
		return nil, errors.NewValidationError("name", "must be non-empty")
	}

	event := &models.Event{
		Name:        req.Name,
		Description: req.Description,
		Active:      true,
	}
	if req.Active != nil {
		event.Active = *req.Active
	}
	if err := s.eventRepo.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info("event created", "event_id", event.ID, "name", event.Name)
	return event, nil
}

func (s *EventServiceImpl) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.eventRepo.GetEvent(ctx, id)
}

func (s *EventServiceImpl) ListEvents(ctx context.Context, page, pageSize int) ([]*models.Event, int64, error) {
	return s.eventRepo.ListEvents(ctx, page, pageSize)
}

func (s *EventServiceImpl) UpdateEvent(ctx context.Context, id string, req *models.EventRequest) (*models.Event, error) {
	event, err := s.eventRepo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		event.Name = req.Name
	}
	if req.Description != "" {
		event.Description = req.Description
	}
	if req.Active != nil {
		event.Active = *req.Active
	}
	if err := s.eventRepo.UpdateEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *EventServiceImpl) DeleteEvent(ctx context.Context, id string) error {
	return s.eventRepo.DeleteEvent(ctx, id)
}

// CreateBusiness opens the business's own wallet account alongside it; that
// account is what event sales credit and settlements sweep.
func (s *EventServiceImpl) CreateBusiness(ctx context.Context, eventID string, req *models.BusinessRequest) (*models.Business, error) {
	if req.Name == "" {
		return nil, errors.NewValidationError("name", "must be non-empty")
	}
	if req.GroupID == "" {
		return nil, errors.NewValidationError("group_id", "must be non-empty")
	}
	if _, err := s.eventRepo.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	account, err := s.accountService.CreateForOwner(ctx, req.GroupID, s.symbol, s.network)
	if err != nil {
		return nil, err
	}

	business := &models.Business{
		EventID:       eventID,
		Name:          req.Name,
		GroupID:       req.GroupID,
		WalletAddress: req.WalletAddress,
		AccountID:     account.ID,
	}
	if err := s.eventRepo.CreateBusiness(ctx, business); err != nil {
		return nil, err
	}

	s.logger.Info("business created",
		"business_id", business.ID,
		"event_id", eventID,
		"group_id", req.GroupID,
	)
	return business, nil
}

func (s *EventServiceImpl) ListBusinesses(ctx context.Context, eventID string) ([]*models.Business, error) {
	return s.eventRepo.ListBusinesses(ctx, eventID)
}

func (s *EventServiceImpl) UpdateBusiness(ctx context.Context, id string, req *models.BusinessRequest) (*models.Business, error) {
	business, err := s.eventRepo.GetBusiness(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		business.Name = req.Name
	}
	if req.GroupID != "" {
		business.GroupID = req.GroupID
	}
	if req.WalletAddress != "" {
		business.WalletAddress = req.WalletAddress
	}
	if err := s.eventRepo.UpdateBusiness(ctx, business); err != nil {
		return nil, err
	}
	return business, nil
}

// DeleteBusiness removes the business record but retires, never deletes, its
// account.
func (s *EventServiceImpl) DeleteBusiness(ctx context.Context, id string) error {
	business, err := s.eventRepo.GetBusiness(ctx, id)
	if err != nil {
		return err
	}
	if err := s.eventRepo.DeleteBusiness(ctx, id); err != nil {
		return err
	}
	if err := s.accountService.Retire(ctx, business.AccountID); err != nil {
		s.logger.Error("failed to retire business account",
			"business_id", id,
			"account_id", business.AccountID,
			"error", err.Error(),
		)
	}
	return nil
}

func (s *EventServiceImpl) AddMember(ctx context.Context, businessID, userID string) (*models.BusinessMember, error) {
	if _, err := s.eventRepo.GetBusiness(ctx, businessID); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	member := &models.BusinessMember{
		BusinessID: businessID,
		UserID:     userID,
	}
	if err := s.eventRepo.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *EventServiceImpl) ListMembers(ctx context.Context, businessID string) ([]*models.BusinessMember, error) {
	return s.eventRepo.ListMembers(ctx, businessID)
}

func (s *EventServiceImpl) RemoveMember(ctx context.Context, businessID, userID string) error {
	return s.eventRepo.RemoveMember(ctx, businessID, userID)
}
