package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrForbidden    = errors.New("forbidden")
)

// Role of the dashboard user.
type Role string

const (
	RoleAcademy Role = "academy"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAcademy, RoleTeacher, RoleStudent:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Claims represents JWT payload. AcademyID is the tenant; SessionID binds the
// token to one sync session and the registered ID names the session member.
type Claims struct {
	AcademyID string `json:"academy_id"`
	Role      Role   `json:"role"`
	SessionID string `json:"sid"`
	Code      string `json:"code,omitempty"`
	jwt.RegisteredClaims
}

// Subject is who a token is issued to. Code is the student_id or teacher_id
// of a member login and empty for the academy admin.
type Subject struct {
	AcademyID string
	Role      Role
	SessionID string
	UserID    string
	Code      string
}

// Token is a signed access token.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Issue signs an access token for a tenant session member.
func Issue(sub Subject, issuer, key string, ttl time.Duration) (Token, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		AcademyID: sub.AcademyID,
		Role:      sub.Role,
		SessionID: sub.SessionID,
		Code:      sub.Code,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sub.UserID,
			Issuer:    issuer,
			Subject:   sub.AcademyID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, ExpiresAt: exp}, nil
}

// Parse validates a token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	}
	if claims.AcademyID == "" || claims.SessionID == "" || claims.ID == "" {
		return Claims{}, fmt.Errorf("%w: missing tenant", ErrInvalidToken)
	}
	return *claims, nil
}
