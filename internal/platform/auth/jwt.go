package auth

import (
	"errors"
	"time"

	"funnel/internal/platform/config"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identify a sequence owner. CompanyID scopes every configuration
// call the bearer makes.
type Claims struct {
	UserID    string   `json:"uid"`
	CompanyID string   `json:"cid"`
	Role      string   `json:"role"`
	Scopes    []string `json:"scp,omitempty"`
	jwt.RegisteredClaims
}

type TokenService struct {
	config config.JWTConfig
}

func NewTokenService(cfg config.JWTConfig) *TokenService {
	if cfg.Issuer == "" {
		cfg.Issuer = "funnel"
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = time.Hour
	}
	return &TokenService{config: cfg}
}

func (s *TokenService) GenerateAccessToken(userID, companyID, role string) (string, error) {
	if s.config.Secret == "" {
		return "", errors.New("jwt secret is not configured")
	}

	now := time.Now()
	claims := Claims{
		UserID:    userID,
		CompanyID: companyID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	if s.config.Secret == "" {
		return nil, errors.New("jwt secret is not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.CompanyID == "" {
			return nil, errors.New("token has no company")
		}
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
