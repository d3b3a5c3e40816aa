package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/core/port"
)

const claimType = "type"

// reservedClaims cannot be overridden through extra claims.
var reservedClaims = map[string]struct{}{
	"sub":     {},
	"iat":     {},
	"exp":     {},
	"nbf":     {},
	claimType: {},
}

// ErrUnsupportedAlgorithm is returned for algorithms other than HS256, HS384 and HS512.
var ErrUnsupportedAlgorithm = errors.New("jwt: unsupported signing algorithm")

// JWTIssuer signs and verifies HMAC JWTs with a process-wide secret.
type JWTIssuer struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// NewJWTIssuer copies secret and resolves algorithm ("HS256", "HS384" or "HS512").
func NewJWTIssuer(secret, algorithm string) (*JWTIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt: secret is required")
	}

	var method jwt.SigningMethod
	switch algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}

	return &JWTIssuer{
		secret: []byte(secret),
		method: method,
		now:    time.Now,
	}, nil
}

// WithClock overrides the time source used for iat, exp and validation.
func (i *JWTIssuer) WithClock(now func() time.Time) *JWTIssuer {
	if now != nil {
		i.now = now
	}
	return i
}

// Algorithm returns the configured signing algorithm name.
func (i *JWTIssuer) Algorithm() string {
	return i.method.Alg()
}

// Issue signs a token for subject. Refresh tokens never carry extra claims.
func (i *JWTIssuer) Issue(subject string, kind domain.TokenKind, ttl time.Duration, extra map[string]any) (string, error) {
	if subject == "" {
		return "", errors.New("jwt: subject is required")
	}
	if ttl <= 0 {
		return "", errors.New("jwt: ttl must be positive")
	}

	now := i.now().UTC()
	claims := jwt.MapClaims{
		"sub":     subject,
		claimType: string(kind),
		"iat":     jwt.NewNumericDate(now),
		"exp":     jwt.NewNumericDate(now.Add(ttl)),
	}
	if kind == domain.TokenKindAccess {
		for k, v := range extra {
			if _, reserved := reservedClaims[k]; reserved {
				continue
			}
			claims[k] = v
		}
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry and checks the token kind matches expect.
// Every failure is reported as domain.ErrInvalidToken.
func (i *JWTIssuer) Decode(token string, expect domain.TokenKind) (domain.TokenClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.TokenClaims{}, fmt.Errorf("%w: token expired", domain.ErrInvalidToken)
		}
		return domain.TokenClaims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return domain.TokenClaims{}, domain.ErrInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return domain.TokenClaims{}, fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}

	kind, _ := claims[claimType].(string)
	if domain.TokenKind(kind) != expect {
		return domain.TokenClaims{}, fmt.Errorf("%w: expected %s token", domain.ErrInvalidToken, expect)
	}

	out := domain.TokenClaims{
		Subject: subject,
		Kind:    domain.TokenKind(kind),
		Extra:   make(map[string]any),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	for k, v := range claims {
		if _, reserved := reservedClaims[k]; !reserved {
			out.Extra[k] = v
		}
	}

	return out, nil
}

var _ port.TokenIssuer = (*JWTIssuer)(nil)
