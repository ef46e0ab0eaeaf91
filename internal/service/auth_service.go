package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hayekcoin/campus-wallet/internal/auth"
	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/models"
	"github.com/hayekcoin/campus-wallet/internal/repository"
)

const resetTokenTTL = time.Hour

type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	Me(ctx context.Context, userID string) (*models.User, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type AuthServiceImpl struct {
	userRepo       repository.UserRepository
	accountService AccountService
	tokens         *auth.TokenManager
	symbol         string
	network        string
	logger         *slog.Logger
}

func NewAuthService(userRepo repository.UserRepository, accountService AccountService, tokens *auth.TokenManager, symbol, network string, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:       userRepo,
		accountService: accountService,
		tokens:         tokens,
		symbol:         symbol,
		network:        network,
		logger:         logger,
	}
}

// Register creates the user and their zero-balance wallet account.
func (s *AuthServiceImpl) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	if err := s.validateRegister(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Nombres:      strings.TrimSpace(req.Nombres),
		Apellidos:    strings.TrimSpace(req.Apellidos),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Carnet:       strings.TrimSpace(req.Carnet),
		PasswordHash: string(hash),
		Role:         string(auth.RoleStudent),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.IsConflict(err) {
			s.logger.Warn("registration with existing email or carnet", "email", user.Email)
		}
		return nil, err
	}

	if _, err := s.accountService.CreateForOwner(ctx, user.ID, s.symbol, s.network); err != nil {
		s.logger.Error("failed to open account for new user", "user_id", user.ID, "error", err.Error())
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, auth.RoleStudent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "carnet", user.Carnet)
	return &models.AuthResponse{Token: token, User: user}, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, errors.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.logger.Warn("failed login attempt", "email", req.Email)
		return nil, errors.ErrInvalidCredentials
	}

	role, ok := auth.ParseRole(user.Role)
	if !ok {
		role = auth.RoleStudent
	}
	token, err := s.tokens.Issue(user.ID, role)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

func (s *AuthServiceImpl) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// ForgotPassword issues a single-use reset token. Only its hash is stored;
// delivery happens out of band. Unknown emails return a token-shaped no-op so
// the endpoint does not leak which addresses exist.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, email string) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", err
	}

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.IsNotFound(err) {
			return token, nil
		}
		return "", err
	}

	expires := sql.NullTime{Time: time.Now().Add(resetTokenTTL), Valid: true}
	if err := s.userRepo.SaveResetToken(ctx, user.ID, hashToken(token), expires); err != nil {
		return "", err
	}

	s.logger.Info("password reset token issued", "user_id", user.ID)
	return token, nil
}

func (s *AuthServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return errors.NewValidationError("password", "must be at least 8 characters")
	}

	userID, err := s.userRepo.ConsumeResetToken(ctx, hashToken(token))
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	s.logger.Info("password reset", "user_id", userID)
	return nil
}

func (s *AuthServiceImpl) validateRegister(req *models.RegisterRequest) error {
	if strings.TrimSpace(req.Nombres) == "" {
		return errors.NewValidationError("nombres", "must be non-empty")
	}
	if strings.TrimSpace(req.Apellidos) == "" {
		return errors.NewValidationError("apellidos", "must be non-empty")
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return errors.NewValidationError("email", "must be a valid email address")
	}
	if strings.TrimSpace(req.Carnet) == "" {
		return errors.NewValidationError("carnet_universitario", "must be non-empty")
	}
	if len(req.Password) < 8 {
		return errors.NewValidationError("password", "must be at least 8 characters")
	}
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
