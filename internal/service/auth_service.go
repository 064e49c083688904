package service

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"

	"github.com/contacthub/contacthub-api/internal/domain"
	"github.com/contacthub/contacthub-api/internal/repository/ports"
	"github.com/contacthub/contacthub-api/internal/util"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user account is inactive")
)

type AuthService struct {
	users ports.UserRepository
	jwt   *util.JWTManager
	aud   string
}

func NewAuthService(users ports.UserRepository, jwt *util.JWTManager, googleAud string) *AuthService {
	return &AuthService{users: users, jwt: jwt, aud: googleAud}
}

// LoginWithEmail verifies the password and issues a signed token.
func (s *AuthService) LoginWithEmail(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil || user == nil {
		return "", ErrInvalidCredentials
	}
	if !user.Active {
		return "", ErrUserInactive
	}
	if !util.VerifyPassword(password, user.PasswordSalt, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	token, _, err := s.jwt.Generate(user.ID, user.Email, user.Role)
	return token, err
}

// LoginWithGoogle validates a Google ID token and issues a signed token for
// the matching directory user. Unknown emails are rejected; the import tool
// does not self-provision accounts.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idTok string) (string, error) {
	payload, err := idtoken.Validate(ctx, idTok, s.aud)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	email, _ := payload.Claims["email"].(string)
	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil || user == nil {
		return "", ErrInvalidCredentials
	}
	if !user.Active {
		return "", ErrUserInactive
	}
	token, _, err := s.jwt.Generate(user.ID, user.Email, user.Role)
	return token, err
}

// Authenticate resolves a bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrUserInactive
	}
	return user, nil
}

func (s *AuthService) IsAdmin(user *domain.User) bool {
	return user != nil && user.IsAdmin()
}
