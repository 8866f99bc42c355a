package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/metasched/metasched/internal/config"
)

// JWTService handles JWT token operations for the control API.
type JWTService struct {
	privateKey    *rsa.PrivateKey
	publicKey     *rsa.PublicKey
	issuer        string
	expiration    time.Duration
	refreshExpiry time.Duration
}

// Claims represents a control-API principal's JWT claims.
type Claims struct {
	UserID      string            `json:"user_id"`
	Username    string            `json:"username"`
	Role        string            `json:"role"`
	Permissions []string          `json:"permissions"`
	Metadata    map[string]string `json:"metadata"`
	jwt.RegisteredClaims
}

// TokenPair represents access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// NewJWTService creates a new JWT service instance, generating a fresh
// RSA key pair for signing.
func NewJWTService(cfg *config.AuthConfig) (*JWTService, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	service := &JWTService{
		privateKey:    privateKey,
		publicKey:     &privateKey.PublicKey,
		issuer:        "metasched",
		expiration:    24 * time.Hour,
		refreshExpiry: 7 * 24 * time.Hour,
	}

	if cfg != nil {
		if cfg.Issuer != "" {
			service.issuer = cfg.Issuer
		}
		if cfg.TokenExpiry > 0 {
			service.expiration = cfg.TokenExpiry
		}
		if cfg.RefreshTTL > 0 {
			service.refreshExpiry = cfg.RefreshTTL
		}
	}

	return service, nil
}

// GenerateToken creates a new access/refresh token pair for the given principal.
func (j *JWTService) GenerateToken(userID, username, role string, permissions []string) (*TokenPair, error) {
	now := time.Now()
	expiresAt := now.Add(j.expiration)
	refreshExpiresAt := now.Add(j.refreshExpiry)

	claims := &Claims{
		UserID:      userID,
		Username:    username,
		Role:        role,
		Permissions: permissions,
		Metadata:    make(map[string]string),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   userID,
			Audience:  []string{"metasched"},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        fmt.Sprintf("%s_%d", userID, now.UnixNano()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	accessToken, err := token.SignedString(j.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshClaims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   userID,
			Audience:  []string{"metasched-refresh"},
			ExpiresAt: jwt.NewNumericDate(refreshExpiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        fmt.Sprintf("%s_refresh_%d", userID, now.UnixNano()),
		},
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodRS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString(j.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenString,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

// ValidateToken validates and parses a JWT token.
func (j *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, errors.New("token has expired")
	}

	return claims, nil
}

// RefreshToken creates a new access token from a valid refresh token.
func (j *JWTService) RefreshToken(refreshTokenString string) (*TokenPair, error) {
	claims, err := j.ValidateToken(refreshTokenString)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}
	if len(claims.Audience) == 0 || claims.Audience[0] != "metasched-refresh" {
		return nil, errors.New("not a refresh token")
	}
	return j.GenerateToken(claims.UserID, claims.Username, claims.Role, claims.Permissions)
}

// GetPublicKey returns the public key for token verification.
func (j *JWTService) GetPublicKey() *rsa.PublicKey {
	return j.publicKey
}

// HasPermission checks if the claims contain a specific permission.
func (c *Claims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// IsAdmin checks if the principal has the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// IsOperator checks if the principal has the operator role or higher.
func (c *Claims) IsOperator() bool {
	return c.Role == RoleAdmin || c.Role == RoleOperator
}

// Roles understood by the control API.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// Permissions understood by the control API.
const (
	PermissionInstanceManage = "instance:manage"
	PermissionRunControl     = "run:control"
	PermissionRunRead        = "run:read"
)

// GetRolePermissions returns the default permission set for a role.
func GetRolePermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{PermissionInstanceManage, PermissionRunControl, PermissionRunRead}
	case RoleOperator:
		return []string{PermissionRunControl, PermissionRunRead}
	case RoleViewer:
		return []string{PermissionRunRead}
	default:
		return []string{}
	}
}
