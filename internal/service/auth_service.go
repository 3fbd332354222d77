package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for hashing the admin credential.
	BcryptCost = 10

	// AccessTokenExpiration bounds how long an issued token stays valid.
	AccessTokenExpiration = 12 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// AuthService guards the mutating routes. There is a single configured
// admin credential; the password is compared against its bcrypt hash and
// successful logins get a signed bearer token.
type AuthService interface {
	Login(username, password string) (token string, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type authService struct {
	adminUser string
	adminHash string
	jwtSecret string
	nowFn     func() time.Time
}

// NewAuthService creates a new instance of AuthService. adminHash is the
// bcrypt hash of the admin password.
func NewAuthService(adminUser, adminHash, jwtSecret string) AuthService {
	return &authService{
		adminUser: adminUser,
		adminHash: adminHash,
		jwtSecret: jwtSecret,
		nowFn:     time.Now,
	}
}

// HashPassword hashes a password using bcrypt with the configured cost.
// Used at startup when the config carries a plaintext bootstrap password.
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// Login verifies the credential pair and issues an access token.
func (s *authService) Login(username, password string) (string, error) {
	if username != s.adminUser {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := s.nowFn()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
