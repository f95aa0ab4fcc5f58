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

// Package cmd implements the server's command line interface
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bauhub/bauhub/pkg/server/log"
)

var root = &cobra.Command{
	Use:           "bauhub-server",
	Short:         "Bauhub server - construction business management backend",
	SilenceErrors: true,
	SilenceUsage:  true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// absent .env is fine; configuration falls back to the environment
		if err := godotenv.Load(); err != nil {
			log.Debug("no .env file loaded")
		}
	},
}

func init() {
	root.AddCommand(startCmd)
	root.AddCommand(tokenCmd)
	root.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return root.Execute()
}
