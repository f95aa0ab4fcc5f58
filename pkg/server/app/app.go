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

// Package app wires the mode-selected storage port, the clock and the
// reconciliation service into a single application context consumed by the
// HTTP handlers. Handlers depend on the storage port only and never branch
// on the deployment mode themselves.
package app

import (
	"github.com/pkg/errors"

	"github.com/bauhub/bauhub/pkg/clock"
	"github.com/bauhub/bauhub/pkg/server/config"
	"github.com/bauhub/bauhub/pkg/server/local"
	"github.com/bauhub/bauhub/pkg/server/remote"
	"github.com/bauhub/bauhub/pkg/server/store"
	"github.com/bauhub/bauhub/pkg/server/sync"
)

var (
	// ErrEmptyClock is an error for missing clock in the app configuration
	ErrEmptyClock = errors.New("No clock was provided")
	// ErrEmptyStore is an error for missing storage port in the app configuration
	ErrEmptyStore = errors.New("No record store was provided")
	// ErrEmptyLocalStore is an error for a local-first configuration with no embedded store
	ErrEmptyLocalStore = errors.New("No embedded store was provided")
	// ErrEmptyRemoteStore is an error for a hosted configuration with no hosted store
	ErrEmptyRemoteStore = errors.New("No hosted store was provided")

	// ErrNotLocalFirst is an error for invoking a local-only operation in hosted mode
	ErrNotLocalFirst = errors.New("operation is only available in local-first mode")
	// ErrRemoteUnavailable is an error for reconciling with no hosted store configured
	ErrRemoteUnavailable = errors.New("no hosted store is configured")
	// ErrOwnerMismatch is an error for a target owner differing from the session identity
	ErrOwnerMismatch = errors.New("session identity does not match the target owner")
	// ErrOwnerIDRequired is an error for a missing target owner id
	ErrOwnerIDRequired = errors.New("owner id is required")
	// ErrKeyRequired is an error for a missing record key
	ErrKeyRequired = errors.New("record key is required")
)

// App is an application context
type App struct {
	Clock   clock.Clock
	Config  config.Config
	Records store.Store
	Local   *local.Store
	Remote  *remote.Store
	Syncer  *sync.Service
}

// Validate validates the app configuration
func (a *App) Validate() error {
	if a.Clock == nil {
		return ErrEmptyClock
	}
	if a.Records == nil {
		return ErrEmptyStore
	}
	if a.Config.IsLocalFirst() && a.Local == nil {
		return ErrEmptyLocalStore
	}
	if a.Config.IsHosted() && a.Remote == nil {
		return ErrEmptyRemoteStore
	}

	return nil
}
