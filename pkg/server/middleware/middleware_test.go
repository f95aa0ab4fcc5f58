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

package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bauhub/bauhub/pkg/server/context"
	"github.com/bauhub/bauhub/pkg/server/session"
	"github.com/pkg/errors"
)

func TestAuth(t *testing.T) {
	provider := session.NewJWTProvider("test-secret")

	var gotSess session.UserSession
	handler := Auth(provider, func(w http.ResponseWriter, r *http.Request) {
		sess, ok := context.Session(r.Context())
		if !ok {
			t.Fatal("no session in the request context")
		}
		gotSess = sess
		w.WriteHeader(http.StatusOK)
	})

	token, err := provider.Issue("user-1", "chef@huberbau.at", session.RoleUser, time.Hour)
	if err != nil {
		t.Fatal(errors.Wrap(err, "issuing token"))
	}

	req := httptest.NewRequest("GET", "/api/v3/customers", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch. got %d", rec.Code)
	}
	if gotSess.UserID != "user-1" {
		t.Errorf("session user mismatch. got %s", gotSess.UserID)
	}
	if gotSess.AccessToken != token {
		t.Errorf("session is missing its access token")
	}
}

func TestAuthMissingCredential(t *testing.T) {
	provider := session.NewJWTProvider("test-secret")
	handler := Auth(provider, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler invoked without a session")
	})

	req := httptest.NewRequest("GET", "/api/v3/customers", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status mismatch. got %d", rec.Code)
	}
}

func TestAuthInvalidToken(t *testing.T) {
	provider := session.NewJWTProvider("test-secret")
	handler := Auth(provider, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler invoked without a session")
	})

	req := httptest.NewRequest("GET", "/api/v3/customers", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status mismatch. got %d", rec.Code)
	}
}

func TestLimit(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()

	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var rejected int
	for i := 0; i < serverRateLimitBurst*2; i++ {
		req := httptest.NewRequest("GET", "/api/v3/customers", nil)
		req.Header.Set("X-Real-IP", "203.0.113.7")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code == http.StatusTooManyRequests {
			rejected++
		}
	}

	if rejected == 0 {
		t.Error("no request was rate limited")
	}
}

func TestLimitPerVisitor(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()

	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// exhaust one visitor's budget
	for i := 0; i < serverRateLimitBurst*2; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Real-IP", "203.0.113.7")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	// another visitor is unaffected
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Real-IP", "198.51.100.23")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch for a fresh visitor. got %d", rec.Code)
	}
}

func TestRecoverPanic(t *testing.T) {
	handler := Global(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status mismatch. got %d", rec.Code)
	}
}
