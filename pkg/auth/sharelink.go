package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
)

// DefaultShareLinkTTL bounds how long an invoice share link stays
// valid.
const DefaultShareLinkTTL = 24 * time.Hour

// ShareLinkClaims are the claims inside an invoice share-link token.
type ShareLinkClaims struct {
	jwt.RegisteredClaims
	InvoiceID string `json:"invoice_id"`
}

// ShareLinkService mints and validates signed tokens that let a
// patient download an invoice without a session.
type ShareLinkService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewShareLinkService creates a share-link service.
func NewShareLinkService(secret []byte, issuer string, ttl time.Duration) *ShareLinkService {
	if ttl == 0 {
		ttl = DefaultShareLinkTTL
	}
	return &ShareLinkService{secret: secret, issuer: issuer, ttl: ttl}
}

// Mint returns a signed token granting read access to one invoice.
func (s *ShareLinkService) Mint(invoiceID uuid.UUID) (string, error) {
	now := timeNow()
	claims := ShareLinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		InvoiceID: invoiceID.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate checks a share-link token and returns the invoice it
// grants access to.
func (s *ShareLinkService) Validate(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ShareLinkClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*ShareLinkClaims)
	if !ok || !token.Valid {
		return uuid.Nil, domain.ErrInvalidToken
	}

	invoiceID, err := uuid.Parse(claims.InvoiceID)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken
	}
	return invoiceID, nil
}
