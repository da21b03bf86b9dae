package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/voxcalls/backend/internal/identity/domain"
	tenancydomain "github.com/voxcalls/backend/internal/tenancy/domain"
)

// Claims is the JWT payload issued on login.
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Role     string    `json:"role"`
	jwt.RegisteredClaims
}

// Application handles authentication and user accounts.
type Application struct {
	users       domain.UserRepository
	tenants     tenancydomain.TenantRepository
	jwtSecret   []byte
	tokenExpiry time.Duration
	logger      *slog.Logger
}

func NewApplication(users domain.UserRepository, tenants tenancydomain.TenantRepository, jwtSecret string, expiryHours int, logger *slog.Logger) *Application {
	return &Application{
		users:       users,
		tenants:     tenants,
		jwtSecret:   []byte(jwtSecret),
		tokenExpiry: time.Duration(expiryHours) * time.Hour,
		logger:      logger.With("service", "identity"),
	}
}

// Login verifies the credentials and issues a signed access token. Unknown
// email and wrong password return the same ErrInvalidCredentials so the
// response does not leak which accounts exist.
func (a *Application) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		return "", nil, domain.ErrUserInactive
	}

	tenant, err := a.tenants.FindByID(ctx, user.TenantID)
	if err != nil {
		return "", nil, err
	}
	if tenant.Status == tenancydomain.StatusSuspended || tenant.Status == tenancydomain.StatusCancelled {
		return "", nil, domain.ErrUserInactive
	}

	token, err := a.issueToken(user)
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to sign access token", "user_id", user.ID, "error", err)
		return "", nil, err
	}

	a.logger.InfoContext(ctx, "User logged in", "user_id", user.ID, "tenant_id", user.TenantID)
	return token, user, nil
}

// ParseToken validates a signed access token and returns its claims.
func (a *Application) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

// CreateUser registers a user under a tenant with a bcrypt-hashed password.
func (a *Application) CreateUser(ctx context.Context, tenantID uuid.UUID, email, password, fullName, role string) (*domain.User, error) {
	if _, err := a.tenants.FindByID(ctx, tenantID); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := domain.NewUser(uuid.New(), tenantID, email, string(hash), fullName, role)
	if err := a.users.Create(ctx, user); err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "User created", "user_id", user.ID, "tenant_id", tenantID, "role", user.Role)
	return user, nil
}

func (a *Application) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return a.users.FindByID(ctx, id)
}

func (a *Application) GetUserForTenant(ctx context.Context, id, tenantID uuid.UUID) (*domain.User, error) {
	return a.users.FindByIDForTenant(ctx, id, tenantID)
}

// ListUsers returns all users, or one tenant's users when tenantID is set.
func (a *Application) ListUsers(ctx context.Context, tenantID *uuid.UUID) ([]*domain.User, error) {
	return a.users.List(ctx, tenantID)
}

func (a *Application) issueToken(user *domain.User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}
