package ports

import (
	"context"

	"github.com/99minutos/user-service/internal/core/domain"
)

// UserStore is the persistence contract consumed by the command processor.
// Lookups signal absence with domain.ErrUserNotFound or domain.ErrRoleNotFound.
type UserStore interface {
	CountUsers(ctx context.Context) (int64, error)
	CountRoles(ctx context.Context) (int64, error)

	// CreateUser assigns the id and returns the stored user. It returns
	// domain.ErrEmailTaken if the backend rejects a duplicate email.
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	CreateRole(ctx context.Context, name string) (*domain.Role, error)

	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetUserByEmailExcludingID finds a user owning email whose id is not id.
	GetUserByEmailExcludingID(ctx context.Context, id int64, email string) (*domain.User, error)
	// ListUsers returns every user ordered by id.
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id int64) error

	GetRoleByName(ctx context.Context, name string) (*domain.Role, error)
	// GetRolesByNames returns the roles that exist among names; unknown names
	// are skipped, so the result may be empty.
	GetRolesByNames(ctx context.Context, names []string) ([]domain.Role, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
