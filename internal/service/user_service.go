package service

import (
	"context"
	"log/slog"

	"github.com/hayekcoin/campus-wallet/internal/auth"
	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/models"
	"github.com/hayekcoin/campus-wallet/internal/repository"
)

type UserService interface {
	Search(ctx context.Context, term string, page, pageSize int) ([]*models.User, int64, error)
	Update(ctx context.Context, id string, req *models.UpdateUserRequest) (*models.User, error)
	GetByCarnet(ctx context.Context, carnet string) (*models.User, error)
}

type UserServiceImpl struct {
	userRepo repository.UserRepository
	logger   *slog.Logger
}

func NewUserService(userRepo repository.UserRepository, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *UserServiceImpl) Search(ctx context.Context, term string, page, pageSize int) ([]*models.User, int64, error) {
	return s.userRepo.Search(ctx, term, page, pageSize)
}

func (s *UserServiceImpl) Update(ctx context.Context, id string, req *models.UpdateUserRequest) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Nombres != "" {
		user.Nombres = req.Nombres
	}
	if req.Apellidos != "" {
		user.Apellidos = req.Apellidos
	}
	if req.Role != "" {
		if _, ok := auth.ParseRole(req.Role); !ok {
			return nil, errors.NewValidationError("role", "unknown role")
		}
		user.Role = req.Role
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user updated", "user_id", id, "role", user.Role)
	return user, nil
}

func (s *UserServiceImpl) GetByCarnet(ctx context.Context, carnet string) (*models.User, error) {
	if carnet == "" {
		return nil, errors.NewValidationError("carnet", "must be non-empty")
	}
	return s.userRepo.GetByCarnet(ctx, carnet)
}
