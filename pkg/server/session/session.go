/* Copyright 2025 Bauhub Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package session resolves the acting identity for a request. The resolved
// identity is the sole authorization boundary: ownership is never derived
// from client-supplied payload fields.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	// RoleUser is the default role for a signed-in account
	RoleUser = "user"
	// RoleAdmin is the role permitted to act on explicit target owner ids
	RoleAdmin = "admin"
	// RoleEmployee is the role for employee accounts with user-level data access
	RoleEmployee = "employee"
)

// ErrInvalidToken is an error for a malformed, expired or mis-signed access token
var ErrInvalidToken = errors.New("invalid or expired access token")

// UserSession identifies the acting user for the duration of a request
type UserSession struct {
	UserID      string
	Email       string
	Role        string
	AccessToken string
}

// IsAdmin checks whether the session may act on records of explicit target owners
func (s UserSession) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Provider resolves a session from an incoming request. The second return
// value reports whether any credential was present at all.
type Provider interface {
	Get(r *http.Request) (UserSession, bool, error)
}

// Claims are the access token claims recognized by the JWT provider
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// JWTProvider resolves sessions from HMAC-signed bearer tokens
type JWTProvider struct {
	secret []byte
}

// NewJWTProvider returns a provider validating tokens against the given secret
func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret)}
}

// Get resolves the session from the Authorization header. A missing header
// yields ok=false with no error; a present but invalid token yields an error.
func (p *JWTProvider) Get(r *http.Request) (UserSession, bool, error) {
	raw := bearerToken(r)
	if raw == "" {
		return UserSession{}, false, nil
	}

	sess, err := p.Parse(raw)
	if err != nil {
		return UserSession{}, false, err
	}

	return sess, true, nil
}

// Parse validates the given raw token and returns the session it encodes
func (p *JWTProvider) Parse(raw string) (UserSession, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	})
	if err != nil {
		return UserSession{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return UserSession{}, ErrInvalidToken
	}

	role := claims.Role
	if role == "" {
		role = RoleUser
	}

	return UserSession{
		UserID:      claims.Subject,
		Email:       claims.Email,
		Role:        role,
		AccessToken: raw,
	}, nil
}

// Issue mints a signed access token for the given identity. It backs the
// operator token command; the production identity system is external.
func (p *JWTProvider) Issue(userID, email, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Role:  role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing access token")
	}

	return signed, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
