package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/voxcalls/backend/internal/api/http/middleware"
	identitydomain "github.com/voxcalls/backend/internal/identity/domain"
	numberingapp "github.com/voxcalls/backend/internal/numbering/app"
	numberingdomain "github.com/voxcalls/backend/internal/numbering/domain"
)

// stubNumberRepo answers every lookup with ErrNotFound; requests that reach
// the handler surface as 404 rather than a role failure.
type stubNumberRepo struct {
	numberingdomain.PhoneNumberRepository
}

func (stubNumberRepo) FindByID(ctx context.Context, id uuid.UUID) (*numberingdomain.PhoneNumber, error) {
	return nil, numberingdomain.ErrNotFound
}

func (stubNumberRepo) FindByAssignedUser(ctx context.Context, userID uuid.UUID) (*numberingdomain.PhoneNumber, error) {
	return nil, numberingdomain.ErrNotFound
}

// withAuthenticatedUser stands in for AuthMiddleware and pins the request
// identity to the given role.
func withAuthenticatedUser(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser := middleware.AuthenticatedUser{
				ID:       uuid.New(),
				TenantID: uuid.New(),
				Role:     role,
			}
			ctx := context.WithValue(r.Context(), middleware.AuthenticatedUserContextKey, authUser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newRoleGateRouter(role string) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := numberingapp.NewApplication(stubNumberRepo{}, nil, nil, nil, nil, nil, logger)
	handler := NewPhoneNumberHandler(app, logger, validator.New())

	r := chi.NewRouter()
	r.Group(func(protected chi.Router) {
		protected.Use(withAuthenticatedUser(role))
		handler.RegisterUserRoutes(protected)

		protected.Group(func(tenantAdmin chi.Router) {
			tenantAdmin.Use(middleware.RequireRole(identitydomain.RoleAdmin, logger))
			handler.RegisterRoutes(tenantAdmin)
		})
	})
	return r
}

func TestPhoneNumberRoutes_RoleGate(t *testing.T) {
	claimBody := `{"phone_number_id":"` + uuid.NewString() + `"}`

	t.Run("UserCannotClaim", func(t *testing.T) {
		router := newRoleGateRouter(identitydomain.RoleUser)
		req := httptest.NewRequest(http.MethodPost, "/phone-numbers/claim", strings.NewReader(claimBody))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("UserCannotRelease", func(t *testing.T) {
		router := newRoleGateRouter(identitydomain.RoleUser)
		req := httptest.NewRequest(http.MethodPost, "/phone-numbers/"+uuid.NewString()+"/release", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("UserCanReadOwnNumber", func(t *testing.T) {
		router := newRoleGateRouter(identitydomain.RoleUser)
		req := httptest.NewRequest(http.MethodGet, "/phone-numbers/mine", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		// The stub holds no assignment; a 404 proves the gate let the
		// request through to the handler.
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("AdminPassesGate", func(t *testing.T) {
		router := newRoleGateRouter(identitydomain.RoleAdmin)
		req := httptest.NewRequest(http.MethodPost, "/phone-numbers/claim", strings.NewReader(claimBody))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("SuperAdminPassesGate", func(t *testing.T) {
		router := newRoleGateRouter(identitydomain.RoleSuperAdmin)
		req := httptest.NewRequest(http.MethodPost, "/phone-numbers/claim", strings.NewReader(claimBody))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
