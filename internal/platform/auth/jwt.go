package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"taskgate/internal/platform/config"
)

const issuer = "taskgate"

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identify a dashboard session. API key callers never carry them.
type Claims struct {
	UserID         string `json:"uid"`
	OrganizationID string `json:"oid"`
	Role           string `json:"role"`
	Email          string `json:"email"`
	TokenType      string `json:"typ"`
	jwt.RegisteredClaims
}

type TokenService struct {
	config config.JWTConfig
	now    func() time.Time
}

func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{config: cfg, now: time.Now}
}

func (s *TokenService) GenerateAccessToken(userID, orgID, role, email string) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
		Email:          email,
		TokenType:      tokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return s.sign(claims)
}

func (s *TokenService) GenerateRefreshToken(userID string) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:    userID,
		TokenType: tokenRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.RefreshTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return s.sign(claims)
}

// ValidateToken accepts access tokens only.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	return s.parse(tokenString, tokenAccess)
}

// ValidateRefreshToken returns the user id a refresh token was issued for.
func (s *TokenService) ValidateRefreshToken(tokenString string) (string, error) {
	claims, err := s.parse(tokenString, tokenRefresh)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *TokenService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *TokenService) parse(tokenString, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
