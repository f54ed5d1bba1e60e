package service

import (
	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
)

// command is one unit of work for the processor. Each concrete command owns a
// reply channel with capacity 1, so replying never blocks the worker even if
// the caller has already given up.
type command interface {
	name() string
}

type result[T any] struct {
	value T
	err   error
}

type seedCommand struct {
	reply chan<- result[struct{}]
}

type loginCommand struct {
	email    string
	password string
	reply    chan<- result[*ports.LoginReply]
}

type createCommand struct {
	draft domain.UserDraft
	reply chan<- result[*ports.UserReply]
}

type readAllCommand struct {
	reply chan<- result[*ports.UsersReply]
}

type readCommand struct {
	id    int64
	reply chan<- result[*ports.UserReply]
}

type updateCommand struct {
	id    int64
	patch domain.UserPatch
	reply chan<- result[*ports.UserReply]
}

type deleteCommand struct {
	id    int64
	reply chan<- result[*ports.Reply]
}

type listRolesCommand struct {
	reply chan<- result[*ports.RolesReply]
}

func (seedCommand) name() string      { return "seed" }
func (loginCommand) name() string     { return "login" }
func (createCommand) name() string    { return "create" }
func (readAllCommand) name() string   { return "read_all" }
func (readCommand) name() string      { return "read" }
func (updateCommand) name() string    { return "update" }
func (deleteCommand) name() string    { return "delete" }
func (listRolesCommand) name() string { return "list_roles" }
