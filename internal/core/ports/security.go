package ports

import (
	"time"

	"github.com/99minutos/user-service/internal/core/domain"
)

// CredentialHasher hashes and verifies passwords. Verify never errors: a
// malformed hash simply does not match.
type CredentialHasher interface {
	Hash(plaintext string, cost int) (string, error)
	Verify(plaintext, hashed string) bool
}

// TokenIssuer signs identity tokens.
type TokenIssuer interface {
	Issue(principal domain.Principal, issuer string, validity time.Duration) (domain.Authentication, error)
}

// TokenVerifier validates identity tokens and recovers the principal.
type TokenVerifier interface {
	Verify(token, expectedIssuer string) (*domain.Principal, error)
}
