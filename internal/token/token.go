package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer     = "chatvault"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Kind selects which signing secret a token is issued and verified against.
// Possession of one kind never grants forgeability of the other.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Status is the outcome of verifying a presented token.
type Status int

const (
	// StatusValid means signature and validity window both checked out.
	StatusValid Status = iota
	// StatusExpired means the signature was fine but the token is past its expiry.
	StatusExpired
	// StatusMalformed covers everything else: bad signature, wrong kind,
	// garbage input, missing subject.
	StatusMalformed
)

// Config holds the two independent signing secrets and optional overrides.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	// Now is the clock used for issuance and validation. Tests inject it.
	Now func() time.Time
}

// Service issues and verifies HS256 tokens. Tokens are stateless: nothing is
// persisted, so revocation is only secret rotation or natural expiry.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// New validates the secrets and builds a Service.
func New(cfg Config) (*Service, error) {
	access := strings.TrimSpace(cfg.AccessSecret)
	refresh := strings.TrimSpace(cfg.RefreshSecret)
	if access == "" || refresh == "" {
		return nil, errors.New("token service requires both signing secrets")
	}
	if access == refresh {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		accessSecret:  []byte(access),
		refreshSecret: []byte(refresh),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           cfg.Now,
	}, nil
}

// IssueAccess signs a short-lived token carrying the subject email.
func (s *Service) IssueAccess(subject string) (string, error) {
	return s.issue(subject, KindAccess)
}

// IssueRefresh signs a long-lived token carrying the subject email.
func (s *Service) IssueRefresh(subject string) (string, error) {
	return s.issue(subject, KindRefresh)
}

// RefreshTTL reports the refresh token lifetime, used for cookie expiry.
func (s *Service) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func (s *Service) issue(subject string, kind Kind) (string, error) {
	secret, ttl, err := s.keyFor(kind)
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.issuer,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify checks signature and expiry against the secret matching kind and
// returns the embedded subject. It never panics on arbitrary input.
func (s *Service) Verify(raw string, kind Kind) (string, Status) {
	secret, _, err := s.keyFor(kind)
	if err != nil {
		return "", StatusMalformed
	}
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", StatusExpired
		}
		return "", StatusMalformed
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", StatusMalformed
	}
	return claims.Subject, StatusValid
}

func (s *Service) keyFor(kind Kind) ([]byte, time.Duration, error) {
	switch kind {
	case KindAccess:
		return s.accessSecret, s.accessTTL, nil
	case KindRefresh:
		return s.refreshSecret, s.refreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("unknown token kind %q", kind)
	}
}
