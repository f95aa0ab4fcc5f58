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

package app

import (
	"github.com/bauhub/bauhub/pkg/server/session"
)

// guardReconciliation enforces the preconditions shared by bulk pull and
// push: the server runs local-first, a hosted store is configured, and the
// target owner is the acting session's identity. Administrators may target
// another owner; they then act with the elevated credential.
func (a *App) guardReconciliation(sess session.UserSession, targetOwner string) (session.UserSession, error) {
	if !a.Config.IsLocalFirst() {
		return sess, ErrNotLocalFirst
	}
	if a.Syncer == nil {
		return sess, ErrRemoteUnavailable
	}
	if targetOwner == "" {
		return sess, ErrOwnerIDRequired
	}

	if targetOwner != sess.UserID {
		if !sess.IsAdmin() {
			return sess, ErrOwnerMismatch
		}

		sess.UserID = targetOwner
		sess.AccessToken = ""
	}

	return sess, nil
}

// PullAll replicates the target owner's entire hosted dataset into the
// embedded store and returns the number of rows pulled
func (a *App) PullAll(sess session.UserSession, targetOwner string) (int, error) {
	sess, err := a.guardReconciliation(sess, targetOwner)
	if err != nil {
		return 0, err
	}

	return a.Syncer.Pull(sess)
}

// PushAll replicates the entire local dataset to the hosted store under the
// target owner's identity and returns the number of rows pushed
func (a *App) PushAll(sess session.UserSession, targetOwner string) (int, error) {
	sess, err := a.guardReconciliation(sess, targetOwner)
	if err != nil {
		return 0, err
	}

	return a.Syncer.Push(sess)
}

// MigrateIdentity rewrites the owner column of every local table to the
// given identity. It is only available in local-first mode.
func (a *App) MigrateIdentity(newOwnerID string) (int64, error) {
	if !a.Config.IsLocalFirst() {
		return 0, ErrNotLocalFirst
	}
	if a.Local == nil {
		return 0, ErrEmptyLocalStore
	}
	if newOwnerID == "" {
		return 0, ErrOwnerIDRequired
	}

	return a.Local.RewriteOwner(newOwnerID), nil
}
