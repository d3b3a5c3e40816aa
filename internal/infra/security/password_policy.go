package security

import (
	"fmt"
	"strings"
	"unicode/utf8"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/core/port"
)

const (
	DefaultMinPasswordLength = 8
	// maxPasswordBytes bounds what is fed into the key derivation.
	maxPasswordBytes = 128
	maxZxcvbnScore   = 4
)

// PasswordPolicy enforces length bounds and, optionally, a zxcvbn strength score
// computed against caller-supplied hints such as the email and names.
type PasswordPolicy struct {
	minLength int
	minScore  int
}

// NewPasswordPolicy returns a policy requiring minLength characters and, when minScore > 0,
// a zxcvbn score of at least minScore (capped at 4).
func NewPasswordPolicy(minLength, minScore int) *PasswordPolicy {
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	if minScore > maxZxcvbnScore {
		minScore = maxZxcvbnScore
	}
	return &PasswordPolicy{minLength: minLength, minScore: minScore}
}

// Validate reports the first violation as a *domain.ValidationError on the password field.
func (p *PasswordPolicy) Validate(password string, hints ...string) error {
	if n := utf8.RuneCountInString(password); n < p.minLength {
		return domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters long", p.minLength))
	}
	if len(password) > maxPasswordBytes {
		return domain.NewValidationError("password", fmt.Sprintf("must be at most %d bytes long", maxPasswordBytes))
	}
	if p.minScore > 0 && PasswordStrength(password, hints...) < p.minScore {
		return domain.NewValidationError("password", "is too weak; choose a more complex value")
	}
	return nil
}

// PasswordStrength returns the zxcvbn score (0 to 4). Empty hints are ignored.
func PasswordStrength(password string, hints ...string) int {
	inputs := make([]string, 0, len(hints))
	for _, h := range hints {
		if h = strings.TrimSpace(h); h != "" {
			inputs = append(inputs, strings.ToLower(h))
		}
	}
	return zxcvbn.PasswordStrength(password, inputs).Score
}

var _ port.PasswordPolicyValidator = (*PasswordPolicy)(nil)
