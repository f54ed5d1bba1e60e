package handler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
)

// --- Requests ---

// roleRef is a requested role. Clients send either the bare name or a role
// object; only the name is used.
type roleRef string

func (r *roleRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*r = roleRef(obj.Name)
		return nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("role must be a name or an object with a name: %w", err)
	}
	*r = roleRef(name)
	return nil
}

func roleNames(refs []roleRef) []string {
	if refs == nil {
		return nil
	}
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, string(r))
	}
	return names
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createUserRequest struct {
	Email     string    `json:"email" validate:"required,email"`
	Password  string    `json:"password" validate:"required"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Roles     []roleRef `json:"roles" swaggertype:"array,string"`
}

func (r createUserRequest) toDraft() domain.UserDraft {
	return domain.UserDraft{
		Email:     r.Email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		RoleNames: roleNames(r.Roles),
	}
}

// updateUserRequest leaves Email and Password nil when they are absent or null.
type updateUserRequest struct {
	Email     *string   `json:"email" validate:"omitempty,email"`
	Password  *string   `json:"password"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Roles     []roleRef `json:"roles" swaggertype:"array,string"`
}

func (r updateUserRequest) toPatch() domain.UserPatch {
	return domain.UserPatch{
		Email:     r.Email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		RoleNames: roleNames(r.Roles),
	}
}

// --- Responses ---

type roleResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type userResponse struct {
	ID        int64          `json:"id"`
	Email     string         `json:"email"`
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Roles     []roleResponse `json:"roles"`
}

type authenticationResponse struct {
	Token    string `json:"token"`
	Validity int64  `json:"validity"`
}

type loginResponse struct {
	Type           ports.ResponseType      `json:"type"`
	Authentication *authenticationResponse `json:"authentication,omitempty"`
}

type userReplyResponse struct {
	Type ports.ResponseType `json:"type"`
	User *userResponse      `json:"user,omitempty"`
}

type usersReplyResponse struct {
	Type  ports.ResponseType `json:"type"`
	Users []userResponse     `json:"users,omitempty"`
}

type rolesReplyResponse struct {
	Type  ports.ResponseType `json:"type"`
	Roles []roleResponse     `json:"roles,omitempty"`
}

type replyResponse struct {
	Type ports.ResponseType `json:"type"`
}

func toRoleResponses(roles []domain.Role) []roleResponse {
	out := make([]roleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleResponse{ID: r.ID, Name: r.Name})
	}
	return out
}

func toUserResponse(u *domain.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Roles:     toRoleResponses(u.Roles),
	}
}

func toLoginResponse(r *ports.LoginReply) loginResponse {
	resp := loginResponse{Type: r.Type}
	if r.Authentication != nil {
		resp.Authentication = &authenticationResponse{
			Token:    r.Authentication.Token,
			Validity: r.Authentication.Validity,
		}
	}
	return resp
}

func toUserReplyResponse(r *ports.UserReply) userReplyResponse {
	return userReplyResponse{Type: r.Type, User: toUserResponse(r.User)}
}

func toUsersReplyResponse(r *ports.UsersReply) usersReplyResponse {
	resp := usersReplyResponse{Type: r.Type}
	if r.Type == ports.ResponseOK {
		resp.Users = make([]userResponse, 0, len(r.Users))
		for _, u := range r.Users {
			resp.Users = append(resp.Users, *toUserResponse(u))
		}
	}
	return resp
}

func toRolesReplyResponse(r *ports.RolesReply) rolesReplyResponse {
	resp := rolesReplyResponse{Type: r.Type}
	if r.Type == ports.ResponseOK {
		resp.Roles = toRoleResponses(r.Roles)
	}
	return resp
}
