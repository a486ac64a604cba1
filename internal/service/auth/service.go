package auth

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/flora-agent/flora/internal/domain"
)

var (
	// ErrInvalidCredentials — неверная пара логин/пароль.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserInactive — учётная запись деактивирована.
	ErrUserInactive = errors.New("user is inactive")
)

// RegisterInput — данные регистрации новой учётной записи.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Validate проверяет данные регистрации до обращения к хранилищу.
func (in *RegisterInput) Validate() []error {
	var errs []error

	if strings.TrimSpace(in.Username) == "" {
		errs = append(errs, domain.ErrUsernameRequired)
	}
	if strings.TrimSpace(in.Email) == "" {
		errs = append(errs, domain.ErrUserEmailRequired)
	}
	if len(in.Password) < 8 {
		errs = append(errs, domain.ErrPasswordTooWeak)
	}
	return errs
}

// Service — сервис аутентификации: регистрация, логин, обновление и отзыв токенов.
type Service struct {
	users     domain.UserRepository
	tokens    *TokenManager
	blacklist *Blacklist
	logger    *log.Entry
}

// NewService создаёт сервис аутентификации.
func NewService(users domain.UserRepository, tokens *TokenManager, blacklist *Blacklist, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "auth")
	}
	if blacklist == nil {
		blacklist = NewBlacklist()
	}
	return &Service{
		users:     users,
		tokens:    tokens,
		blacklist: blacklist,
		logger:    logger,
	}
}

// Register создаёт учётную запись с bcrypt-хешем пароля.
// Дубликат username или email — IntegrityConflictError.
func (s *Service) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if errs := input.Validate(); len(errs) > 0 {
		return domain.User{}, errors.Join(errs...)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	created, err := s.users.Create(ctx, domain.User{
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: string(hash),
		IsActive:     true,
	})
	if err != nil {
		return domain.User{}, err
	}

	s.logger.WithFields(log.Fields{
		"user_id":  created.ID,
		"username": created.Username,
	}).Info("user registered")
	return created, nil
}

// Login проверяет пароль и выдаёт пару токенов.
// Несуществующий пользователь и неверный пароль неразличимы для вызывающего.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if domain.IsNotFound(err) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !user.IsActive {
		return TokenPair{}, ErrUserInactive
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.logger.WithField("username", username).Warn("login failed, wrong password")
		return TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Username)
	if err != nil {
		return TokenPair{}, err
	}

	s.logger.WithField("user_id", user.ID).Info("user logged in")
	return pair, nil
}

// Refresh обменивает действующий refresh-токен на новую пару.
// Старый refresh-токен отзывается.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.verify(refreshToken, TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		if domain.IsNotFound(err) {
			return TokenPair{}, ErrTokenInvalid
		}
		return TokenPair{}, err
	}
	if !user.IsActive {
		return TokenPair{}, ErrUserInactive
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Username)
	if err != nil {
		return TokenPair{}, err
	}
	s.blacklist.Revoke(claims.ID, claims.ExpiresAt.Time)

	s.logger.WithField("user_id", user.ID).Debug("tokens refreshed")
	return pair, nil
}

// Logout отзывает предъявленный токен до конца его срока.
func (s *Service) Logout(tokenString string) error {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return err
	}
	s.blacklist.Revoke(claims.ID, claims.ExpiresAt.Time)

	s.logger.WithField("user_id", claims.UserID).Info("user logged out")
	return nil
}

// Authenticate проверяет access-токен и возвращает его claims.
// Используется HTTP middleware на каждом запросе.
func (s *Service) Authenticate(tokenString string) (*Claims, error) {
	return s.verify(tokenString, TokenTypeAccess)
}

func (s *Service) verify(tokenString, wantType string) (*Claims, error) {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != wantType {
		return nil, ErrTokenWrongType
	}
	if s.blacklist.IsRevoked(claims.ID) {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
