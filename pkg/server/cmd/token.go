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

package cmd

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bauhub/bauhub/pkg/server/config"
	"github.com/bauhub/bauhub/pkg/server/session"
)

var (
	tokenUserIDFlag string
	tokenEmailFlag  string
	tokenRoleFlag   string
	tokenTTLFlag    time.Duration
)

// tokenCmd mints an access token for the given identity. It is an operator
// tool for setups without an external identity system.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for a user",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserIDFlag, "userId", "", "The identity to mint the token for (required)")
	tokenCmd.Flags().StringVar(&tokenEmailFlag, "email", "", "The email claim")
	tokenCmd.Flags().StringVar(&tokenRoleFlag, "role", session.RoleUser, "The role claim: user, admin or employee")
	tokenCmd.Flags().DurationVar(&tokenTTLFlag, "ttl", 30*24*time.Hour, "How long the token stays valid")
}

func runToken(cmd *cobra.Command, args []string) error {
	if tokenUserIDFlag == "" {
		return errors.New("userId is required")
	}

	cfg, err := config.New(config.Params{})
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}

	provider := session.NewJWTProvider(cfg.TokenSecret)
	token, err := provider.Issue(tokenUserIDFlag, tokenEmailFlag, tokenRoleFlag, tokenTTLFlag)
	if err != nil {
		return errors.Wrap(err, "issuing token")
	}

	fmt.Println(token)

	return nil
}
