package domain

// User is the account aggregate. Password always holds a bcrypt hash once the
// user has been persisted.
type User struct {
	ID        int64
	Email     string
	Password  string
	FirstName string
	LastName  string
	Roles     []Role
}

// IsAdministrator reports whether the user holds the Administrator role.
func (u *User) IsAdministrator() bool {
	return hasRole(u.Roles, RoleAdministrator)
}

// Principal converts the user into the identity carried inside a token. The
// password hash is deliberately left out.
func (u *User) Principal() Principal {
	roles := make([]Role, len(u.Roles))
	copy(roles, u.Roles)
	return Principal{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Roles:     roles,
	}
}

// Clone returns a deep copy so stores never share role slices with callers.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = make([]Role, len(u.Roles))
	copy(c.Roles, u.Roles)
	return &c
}

// UserDraft is the input of a signup: the password is still plaintext.
type UserDraft struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	RoleNames []string
}

// RequestsRole reports whether the draft asks for the named role.
func (d UserDraft) RequestsRole(name string) bool {
	for _, r := range d.RoleNames {
		if r == name {
			return true
		}
	}
	return false
}

// UserPatch carries the fields of an update. Nil Email/Password mean "keep";
// names are always overwritten; an empty RoleNames keeps the current roles.
type UserPatch struct {
	Email     *string
	Password  *string
	FirstName string
	LastName  string
	RoleNames []string
}

// Principal is the caller identity recovered from a verified token. It lives
// only for the duration of a request.
type Principal struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Roles     []Role `json:"roles"`
}

// IsAdministrator reports whether the principal holds the Administrator role.
func (p *Principal) IsAdministrator() bool {
	return p != nil && hasRole(p.Roles, RoleAdministrator)
}

// Authentication is what a successful login hands back to the client.
// Validity is the token expiry in epoch milliseconds.
type Authentication struct {
	Token    string
	Validity int64
}
