package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/infrastructure/queue"
	"github.com/99minutos/user-service/internal/pkg/metrics"
)

const (
	defaultAskTimeout = 5 * time.Second
	defaultHashCost   = 12
	defaultValidity   = 24 * time.Hour
)

// RootAccount describes the administrator created by Seed on an empty store.
type RootAccount struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	HashRounds int
}

// ProcessorConfig holds the business constants of the processor.
type ProcessorConfig struct {
	TokenIssuer   string
	TokenValidity time.Duration
	// HashCost is the bcrypt cost used for signups and password changes.
	HashCost int
	Root     RootAccount
	// Timeout bounds how long a caller waits for a reply.
	Timeout     time.Duration
	MailboxSize int
}

// UserProcessor owns every business rule over users and roles. All commands
// pass through a single mailbox worker, so no two commands ever observe or
// modify the store concurrently.
type UserProcessor struct {
	store   ports.UserStore
	hasher  ports.CredentialHasher
	tokens  ports.TokenIssuer
	cfg     ProcessorConfig
	mailbox *queue.Mailbox[command]
	log     zerolog.Logger

	// dummyHash is compared against on logins for unknown emails so they cost
	// the same as a wrong password.
	dummyHash string
}

var _ ports.UserService = (*UserProcessor)(nil)

// NewUserProcessor wires a processor. Call Start before sending commands.
func NewUserProcessor(
	store ports.UserStore,
	hasher ports.CredentialHasher,
	tokens ports.TokenIssuer,
	cfg ProcessorConfig,
	log zerolog.Logger,
) (*UserProcessor, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultAskTimeout
	}
	if cfg.HashCost <= 0 {
		cfg.HashCost = defaultHashCost
	}
	if cfg.TokenValidity <= 0 {
		cfg.TokenValidity = defaultValidity
	}

	dummy, err := hasher.Hash("timing-parity", cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	p := &UserProcessor{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		cfg:       cfg,
		log:       log.With().Str("component", "user_processor").Logger(),
		dummyHash: dummy,
	}
	p.mailbox = queue.NewMailbox("users", cfg.MailboxSize, p.handle, log)
	return p, nil
}

// Start launches the worker. It stops when ctx is cancelled.
func (p *UserProcessor) Start(ctx context.Context) {
	p.mailbox.Start(ctx)
}

// Done is closed once the worker has stopped.
func (p *UserProcessor) Done() <-chan struct{} {
	return p.mailbox.Done()
}

// --- Asks -------------------------------------------------------------------

func (p *UserProcessor) Seed(ctx context.Context) error {
	_, err := ask(ctx, p, func(reply chan<- result[struct{}]) command {
		return seedCommand{reply: reply}
	})
	return err
}

func (p *UserProcessor) Login(ctx context.Context, email, password string) (*ports.LoginReply, error) {
	return ask(ctx, p, func(reply chan<- result[*ports.LoginReply]) command {
		return loginCommand{email: email, password: password, reply: reply}
	})
}

func (p *UserProcessor) Create(ctx context.Context, draft domain.UserDraft) (*ports.UserReply, error) {
	return ask(ctx, p, func(reply chan<- result[*ports.UserReply]) command {
		return createCommand{draft: draft, reply: reply}
	})
}

func (p *UserProcessor) ReadAll(ctx context.Context) (*ports.UsersReply, error) {
	return ask(ctx, p, func(reply chan<- result[*ports.UsersReply]) command {
		return readAllCommand{reply: reply}
	})
}

func (p *UserProcessor) Read(ctx context.Context, id int64) (*ports.UserReply, error) {
	return ask(ctx, p, func(reply chan<- result[*ports.UserReply]) command {
		return readCommand{id: id, reply: reply}
	})
}

func (p *UserProcessor) Update(ctx context.Context, id int64, patch domain.UserPatch) (*ports.UserReply, error) {
	return ask(ctx, p, func(reply chan<- result[*ports.UserReply]) command {
		return updateCommand{id: id, patch: patch, reply: reply}
	})
}

func (p *UserProcessor) Delete(ctx context.Context, id int64) (*ports.Reply, error) {
	return ask(ctx, p, func(reply chan<- result[*ports.Reply]) command {
		return deleteCommand{id: id, reply: reply}
	})
}

func (p *UserProcessor) ListRoles(ctx context.Context) (*ports.RolesReply, error) {
	return ask(ctx, p, func(reply chan<- result[*ports.RolesReply]) command {
		return listRolesCommand{reply: reply}
	})
}

// ask sends the command built around a fresh reply channel and waits for the
// answer, bounded by the configured timeout.
func ask[T any](ctx context.Context, p *UserProcessor, build func(chan<- result[T]) command) (T, error) {
	var zero T
	reply := make(chan result[T], 1)
	cmd := build(reply)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	if err := p.mailbox.Send(ctx, cmd); err != nil {
		return zero, p.askFailure(cmd, err)
	}

	select {
	case r := <-reply:
		return r.value, r.err
	case <-p.mailbox.Done():
		select {
		case r := <-reply:
			return r.value, r.err
		default:
			return zero, domain.ErrProcessorStopped
		}
	case <-ctx.Done():
		return zero, p.askFailure(cmd, ctx.Err())
	}
}

func (p *UserProcessor) askFailure(cmd command, err error) error {
	switch {
	case errors.Is(err, queue.ErrMailboxClosed):
		return domain.ErrProcessorStopped
	case errors.Is(err, context.DeadlineExceeded):
		metrics.CommandTimeoutsTotal.WithLabelValues(cmd.name()).Inc()
		p.log.Warn().Str("command", cmd.name()).Dur("timeout", p.cfg.Timeout).Msg("command timed out")
		return fmt.Errorf("%s: %w", cmd.name(), domain.ErrProcessorTimeout)
	default:
		return fmt.Errorf("%s: %w", cmd.name(), err)
	}
}

// --- Worker -----------------------------------------------------------------

// handle runs on the mailbox worker goroutine only.
func (p *UserProcessor) handle(ctx context.Context, cmd command) {
	start := time.Now()
	var (
		typ ports.ResponseType
		err error
	)

	switch c := cmd.(type) {
	case seedCommand:
		err = p.seed(ctx)
		typ = ports.ResponseOK
		c.reply <- result[struct{}]{err: err}
	case loginCommand:
		var r *ports.LoginReply
		r, err = p.login(ctx, c.email, c.password)
		if r != nil {
			typ = r.Type
		}
		c.reply <- result[*ports.LoginReply]{value: r, err: err}
	case createCommand:
		var r *ports.UserReply
		r, err = p.create(ctx, c.draft)
		if r != nil {
			typ = r.Type
		}
		c.reply <- result[*ports.UserReply]{value: r, err: err}
	case readAllCommand:
		var r *ports.UsersReply
		r, err = p.readAll(ctx)
		if r != nil {
			typ = r.Type
		}
		c.reply <- result[*ports.UsersReply]{value: r, err: err}
	case readCommand:
		var r *ports.UserReply
		r, err = p.read(ctx, c.id)
		if r != nil {
			typ = r.Type
		}
		c.reply <- result[*ports.UserReply]{value: r, err: err}
	case updateCommand:
		var r *ports.UserReply
		r, err = p.update(ctx, c.id, c.patch)
		if r != nil {
			typ = r.Type
		}
		c.reply <- result[*ports.UserReply]{value: r, err: err}
	case deleteCommand:
		var r *ports.Reply
		r, err = p.delete(ctx, c.id)
		if r != nil {
			typ = r.Type
		}
		c.reply <- result[*ports.Reply]{value: r, err: err}
	case listRolesCommand:
		var r *ports.RolesReply
		r, err = p.listRoles(ctx)
		if r != nil {
			typ = r.Type
		}
		c.reply <- result[*ports.RolesReply]{value: r, err: err}
	default:
		p.log.Error().Str("type", fmt.Sprintf("%T", cmd)).Msg("unknown command dropped")
		return
	}

	outcome := string(typ)
	if err != nil {
		outcome = "error"
		p.log.Error().Err(err).Str("command", cmd.name()).Msg("command failed")
	}
	metrics.CommandsProcessedTotal.WithLabelValues(cmd.name(), outcome).Inc()
	metrics.CommandDuration.WithLabelValues(cmd.name()).Observe(time.Since(start).Seconds())
}

// --- Business rules ---------------------------------------------------------

func (p *UserProcessor) seed(ctx context.Context) error {
	roleCount, err := p.store.CountRoles(ctx)
	if err != nil {
		return fmt.Errorf("seed: count roles: %w", err)
	}

	var admin *domain.Role
	if roleCount == 0 {
		if admin, err = p.store.CreateRole(ctx, domain.RoleAdministrator); err != nil {
			return fmt.Errorf("seed: create role %s: %w", domain.RoleAdministrator, err)
		}
		if _, err = p.store.CreateRole(ctx, domain.RoleGuest); err != nil {
			return fmt.Errorf("seed: create role %s: %w", domain.RoleGuest, err)
		}
		p.log.Info().Msg("seeded default roles")
	}

	userCount, err := p.store.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("seed: count users: %w", err)
	}
	if userCount > 0 {
		return nil
	}

	if admin == nil {
		if admin, err = p.store.GetRoleByName(ctx, domain.RoleAdministrator); err != nil {
			return fmt.Errorf("seed: load role %s: %w", domain.RoleAdministrator, err)
		}
	}

	hash, err := p.hasher.Hash(p.cfg.Root.Password, p.cfg.Root.HashRounds)
	if err != nil {
		return fmt.Errorf("seed: hash root password: %w", err)
	}
	root, err := p.store.CreateUser(ctx, &domain.User{
		Email:     p.cfg.Root.Email,
		Password:  hash,
		FirstName: p.cfg.Root.FirstName,
		LastName:  p.cfg.Root.LastName,
		Roles:     []domain.Role{*admin},
	})
	if err != nil {
		return fmt.Errorf("seed: create root user: %w", err)
	}

	p.log.Info().Int64("user_id", root.ID).Str("email", root.Email).Msg("seeded root user")
	return nil
}

func (p *UserProcessor) login(ctx context.Context, email, password string) (*ports.LoginReply, error) {
	user, err := p.store.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		p.hasher.Verify(password, p.dummyHash)
		return &ports.LoginReply{Type: ports.ResponseUnauthorized}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if !p.hasher.Verify(password, user.Password) {
		return &ports.LoginReply{Type: ports.ResponseUnauthorized}, nil
	}

	auth, err := p.tokens.Issue(user.Principal(), p.cfg.TokenIssuer, p.cfg.TokenValidity)
	if err != nil {
		p.log.Error().Err(err).Int64("user_id", user.ID).Msg("token issue failed")
		return &ports.LoginReply{Type: ports.ResponseUnauthorized}, nil
	}

	return &ports.LoginReply{Type: ports.ResponseOK, Authentication: &auth}, nil
}

func (p *UserProcessor) create(ctx context.Context, draft domain.UserDraft) (*ports.UserReply, error) {
	_, err := p.store.GetUserByEmail(ctx, draft.Email)
	if err == nil {
		return &ports.UserReply{Type: ports.ResponseEmailNotAvailable}, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("create: %w", err)
	}

	hash, err := p.hasher.Hash(draft.Password, p.cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("create: hash password: %w", err)
	}

	roles, err := p.resolveRoles(ctx, draft.RoleNames)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	if len(roles) == 0 {
		guest, err := p.store.GetRoleByName(ctx, domain.RoleGuest)
		if err != nil {
			return nil, fmt.Errorf("create: load role %s: %w", domain.RoleGuest, err)
		}
		roles = []domain.Role{*guest}
	}

	created, err := p.store.CreateUser(ctx, &domain.User{
		Email:     draft.Email,
		Password:  hash,
		FirstName: draft.FirstName,
		LastName:  draft.LastName,
		Roles:     roles,
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		return &ports.UserReply{Type: ports.ResponseEmailNotAvailable}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	p.log.Debug().Int64("user_id", created.ID).Msg("user created")
	return &ports.UserReply{Type: ports.ResponseOK, User: created}, nil
}

func (p *UserProcessor) readAll(ctx context.Context) (*ports.UsersReply, error) {
	users, err := p.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("read all: %w", err)
	}
	return &ports.UsersReply{Type: ports.ResponseOK, Users: users}, nil
}

func (p *UserProcessor) read(ctx context.Context, id int64) (*ports.UserReply, error) {
	user, err := p.store.GetUserByID(ctx, id)
	if errors.Is(err, domain.ErrUserNotFound) {
		return &ports.UserReply{Type: ports.ResponseNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return &ports.UserReply{Type: ports.ResponseOK, User: user}, nil
}

func (p *UserProcessor) update(ctx context.Context, id int64, patch domain.UserPatch) (*ports.UserReply, error) {
	user, err := p.store.GetUserByID(ctx, id)
	if errors.Is(err, domain.ErrUserNotFound) {
		return &ports.UserReply{Type: ports.ResponseNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	if patch.Email != nil {
		_, err := p.store.GetUserByEmailExcludingID(ctx, id, *patch.Email)
		if err == nil {
			return &ports.UserReply{Type: ports.ResponseEmailNotAvailable}, nil
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("update: %w", err)
		}
		user.Email = *patch.Email
	}
	if patch.Password != nil {
		hash, err := p.hasher.Hash(*patch.Password, p.cfg.HashCost)
		if err != nil {
			return nil, fmt.Errorf("update: hash password: %w", err)
		}
		user.Password = hash
	}
	user.FirstName = patch.FirstName
	user.LastName = patch.LastName
	if len(patch.RoleNames) > 0 {
		roles, err := p.resolveRoles(ctx, patch.RoleNames)
		if err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}
		user.Roles = roles
	}

	switch err := p.store.UpdateUser(ctx, user); {
	case errors.Is(err, domain.ErrEmailTaken):
		return &ports.UserReply{Type: ports.ResponseEmailNotAvailable}, nil
	case errors.Is(err, domain.ErrUserNotFound):
		return &ports.UserReply{Type: ports.ResponseNotFound}, nil
	case err != nil:
		return nil, fmt.Errorf("update: %w", err)
	}

	p.log.Debug().Int64("user_id", user.ID).Msg("user updated")
	return &ports.UserReply{Type: ports.ResponseOK, User: user}, nil
}

func (p *UserProcessor) delete(ctx context.Context, id int64) (*ports.Reply, error) {
	if _, err := p.store.GetUserByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return &ports.Reply{Type: ports.ResponseNotFound}, nil
		}
		return nil, fmt.Errorf("delete: %w", err)
	}

	switch err := p.store.DeleteUser(ctx, id); {
	case errors.Is(err, domain.ErrUserNotFound):
		return &ports.Reply{Type: ports.ResponseNotFound}, nil
	case err != nil:
		return nil, fmt.Errorf("delete: %w", err)
	}

	p.log.Debug().Int64("user_id", id).Msg("user deleted")
	return &ports.Reply{Type: ports.ResponseOK}, nil
}

func (p *UserProcessor) listRoles(ctx context.Context) (*ports.RolesReply, error) {
	roles, err := p.store.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return &ports.RolesReply{Type: ports.ResponseOK, Roles: roles}, nil
}

// resolveRoles maps requested names to stored roles, ignoring duplicates and
// names that do not exist.
func (p *UserProcessor) resolveRoles(ctx context.Context, names []string) ([]domain.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}

	roles, err := p.store.GetRolesByNames(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	return roles, nil
}
