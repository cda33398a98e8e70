package token

import (
	"errors"
	"time"

	"storefront/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is what the storefront needs to know about the caller.
type Identity struct {
	UserID  uuid.UUID
	Role    service.Role
	Profile service.Profile
}

// HSProvider verifies access tokens issued by the identity provider (HS256, shared secret).
// Sign exists for tooling and tests.
type HSProvider struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewHSProvider(secret, issuer string) *HSProvider {
	return &HSProvider{secret: []byte(secret), issuer: issuer, now: time.Now}
}

type customClaims struct {
	Sub   string `json:"sub"`
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

func (p *HSProvider) Sign(id Identity, ttl time.Duration) (string, time.Time, error) {
	now := p.now()
	exp := now.Add(ttl)
	claims := customClaims{
		Sub:   id.UserID.String(),
		Role:  string(id.Role),
		Name:  id.Profile.Name,
		Email: id.Profile.Email,
		Phone: id.Profile.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	return signed, exp, err
}

func (p *HSProvider) Parse(token string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &customClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithIssuer(p.issuer), jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, err
	}
	cc, ok := parsed.Claims.(*customClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	uid, err := uuid.Parse(cc.Sub)
	if err != nil {
		return nil, err
	}
	role := service.Role(cc.Role)
	if role == "" {
		role = service.RoleCustomer
	}
	return &Identity{
		UserID:  uid,
		Role:    role,
		Profile: service.Profile{Name: cc.Name, Email: cc.Email, Phone: cc.Phone},
	}, nil
}
