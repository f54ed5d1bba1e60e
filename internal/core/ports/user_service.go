package ports

import (
	"context"

	"github.com/99minutos/user-service/internal/core/domain"
)

// ResponseType tags every command reply. Values match the JSON contract.
type ResponseType string

const (
	ResponseOK                ResponseType = "OK"
	ResponseUnauthorized      ResponseType = "UNAUTHORIZED"
	ResponseNotFound          ResponseType = "NOT_FOUND"
	ResponseEmailNotAvailable ResponseType = "EMAIL_NOT_AVAILABLE"
)

// Reply is the payload-less result of Delete.
type Reply struct {
	Type ResponseType
}

// LoginReply carries Authentication only when Type is ResponseOK.
type LoginReply struct {
	Type           ResponseType
	Authentication *domain.Authentication
}

// UserReply carries User only when Type is ResponseOK.
type UserReply struct {
	Type ResponseType
	User *domain.User
}

// UsersReply is the result of ReadAll.
type UsersReply struct {
	Type  ResponseType
	Users []*domain.User
}

// RolesReply is the result of ListRoles.
type RolesReply struct {
	Type  ResponseType
	Roles []domain.Role
}

// UserService is the command processor as seen by the transport layer. The
// returned error is reserved for failures outside the business outcomes:
// timeouts, a stopped processor, or store errors.
type UserService interface {
	Seed(ctx context.Context) error
	Login(ctx context.Context, email, password string) (*LoginReply, error)
	Create(ctx context.Context, draft domain.UserDraft) (*UserReply, error)
	ReadAll(ctx context.Context) (*UsersReply, error)
	Read(ctx context.Context, id int64) (*UserReply, error)
	Update(ctx context.Context, id int64, patch domain.UserPatch) (*UserReply, error)
	Delete(ctx context.Context, id int64) (*Reply, error)
	ListRoles(ctx context.Context) (*RolesReply, error)
}
