package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
	ErrEmptyPlayer  = errors.New("player must not be empty")
)

// TokenType access or refresh
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims token claims; Player keys the high score table
type Claims struct {
	Player    string    `json:"player"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair issued tokens
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// Service issues and validates HS256 tokens
type Service struct {
	secretKey     []byte
	issuer        string
	accessExpire  time.Duration
	refreshExpire time.Duration
}

// NewService creates the service
func NewService(secretKey, issuer string, accessExpire, refreshExpire time.Duration) *Service {
	return &Service{
		secretKey:     []byte(secretKey),
		issuer:        issuer,
		accessExpire:  accessExpire,
		refreshExpire: refreshExpire,
	}
}

// GenerateTokenPair issues an access and a refresh token for player
func (s *Service) GenerateTokenPair(player string) (*TokenPair, error) {
	player = strings.TrimSpace(player)
	if player == "" {
		return nil, ErrEmptyPlayer
	}

	now := time.Now()
	accessExpiresAt := now.Add(s.accessExpire)
	refreshExpiresAt := now.Add(s.refreshExpire)

	accessToken, err := s.generateToken(player, AccessToken, now, accessExpiresAt)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateToken(player, RefreshToken, now, refreshExpiresAt)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExpiresAt.Unix(),
	}, nil
}

func (s *Service) generateToken(player string, tokenType TokenType, now, expiresAt time.Time) (string, error) {
	claims := &Claims{
		Player:    player,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   player,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateAccessToken validates an access token
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validateToken(tokenString, AccessToken)
}

// ValidateRefreshToken validates a refresh token
func (s *Service) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validateToken(tokenString, RefreshToken)
}

// GetAccessExpire access token lifetime
func (s *Service) GetAccessExpire() time.Duration {
	return s.accessExpire
}

func (s *Service) validateToken(tokenString string, expectedType TokenType) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.TokenType != expectedType || claims.Player == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
