package tex

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"texforge/internal/model"
)

// Clock abstracts time retrieval so expiry logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// TokenSource abstracts session token generation so tests are deterministic.
type TokenSource interface {
	NewToken() (model.Token, error)
}

// RandomTokenSource produces unguessable tokens: 32 bytes from the
// system CSPRNG, rendered as 64 hex characters.
type RandomTokenSource struct{}

func (RandomTokenSource) NewToken() (model.Token, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return model.Token(hex.EncodeToString(buf)), nil
}

// IdentityResolver maps an authenticated session to its owning identity.
// There is no real authentication yet; the resolver seam exists so one
// can be substituted without touching the store contracts.
type IdentityResolver interface {
	Resolve() model.UserID
}

// GuestUserID is the user row seeded by the initial migration.
const GuestUserID model.UserID = 1

// StaticResolver pins every session to one fixed identity.
type StaticResolver struct {
	Owner model.UserID
}

func (r StaticResolver) Resolve() model.UserID { return r.Owner }
