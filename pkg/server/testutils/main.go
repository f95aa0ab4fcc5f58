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

// Package testutils provides utilities used in tests
package testutils

import (
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bauhub/bauhub/pkg/server/helpers"
	"github.com/bauhub/bauhub/pkg/server/local"
	"github.com/bauhub/bauhub/pkg/server/remote"
	"github.com/bauhub/bauhub/pkg/server/session"
)

// TokenSecret is the access token secret used across tests
const TokenSecret = "test-secret"

// MustUUID generates a UUID and fails the test on error
func MustUUID(t *testing.T) string {
	uuid, err := helpers.GenUUID()
	if err != nil {
		t.Fatal(errors.Wrap(err, "generating uuid"))
	}
	return uuid
}

// InitLocalStore initializes an in-memory embedded store with the managed schema
func InitLocalStore(t *testing.T) *local.Store {
	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", MustUUID(t))

	db, err := local.Open(dbName)
	if err != nil {
		t.Fatal(errors.Wrap(err, "opening in-memory embedded database"))
	}
	t.Cleanup(func() { db.Close() })

	if err := db.InitSchema(); err != nil {
		t.Fatal(errors.Wrap(err, "initializing embedded schema"))
	}

	return local.NewStore(db)
}

// InitRemoteStore initializes an elevated hosted store adapter backed by an
// in-memory database standing in for the hosted backend
func InitRemoteStore(t *testing.T) *remote.Store {
	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", MustUUID(t))

	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	if err != nil {
		t.Fatal(errors.Wrap(err, "opening in-memory hosted database"))
	}

	s := remote.NewStore(db, session.NewJWTProvider(TokenSecret))
	if err := s.InitSchema(); err != nil {
		t.Fatal(errors.Wrap(err, "initializing hosted schema"))
	}

	return s
}

// SetupSession returns a session for the given user carrying a valid access token
func SetupSession(t *testing.T, userID, role string) session.UserSession {
	provider := session.NewJWTProvider(TokenSecret)

	token, err := provider.Issue(userID, fmt.Sprintf("%s@test.local", userID), role, time.Hour)
	if err != nil {
		t.Fatal(errors.Wrap(err, "issuing access token"))
	}

	return session.UserSession{
		UserID:      userID,
		Email:       fmt.Sprintf("%s@test.local", userID),
		Role:        role,
		AccessToken: token,
	}
}

// SetupTokenlessSession returns a session without an access token, forcing
// the elevated-credential fallback on the hosted store
func SetupTokenlessSession(userID, role string) session.UserSession {
	return session.UserSession{
		UserID: userID,
		Role:   role,
	}
}
