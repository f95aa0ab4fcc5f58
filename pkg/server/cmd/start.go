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
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bauhub/bauhub/pkg/clock"
	"github.com/bauhub/bauhub/pkg/server/app"
	"github.com/bauhub/bauhub/pkg/server/config"
	"github.com/bauhub/bauhub/pkg/server/controllers"
	"github.com/bauhub/bauhub/pkg/server/local"
	"github.com/bauhub/bauhub/pkg/server/log"
	mw "github.com/bauhub/bauhub/pkg/server/middleware"
	"github.com/bauhub/bauhub/pkg/server/mirror"
	"github.com/bauhub/bauhub/pkg/server/remote"
	"github.com/bauhub/bauhub/pkg/server/session"
	"github.com/bauhub/bauhub/pkg/server/sync"
)

const shutdownTimeout = 10 * time.Second

var (
	startModeFlag      string
	startPortFlag      string
	startDBPathFlag    string
	startRemoteDSNFlag string
	startLogLevelFlag  string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().StringVar(&startModeFlag, "mode", "", "Deployment mode: local-first or hosted (env: BAUHUB_MODE)")
	startCmd.Flags().StringVar(&startPortFlag, "port", "", "Server port (env: PORT)")
	startCmd.Flags().StringVar(&startDBPathFlag, "dbPath", "", "Path to the embedded database file (env: BAUHUB_DB_PATH)")
	startCmd.Flags().StringVar(&startRemoteDSNFlag, "remoteDsn", "", "DSN of the hosted store (env: BAUHUB_REMOTE_DSN)")
	startCmd.Flags().StringVar(&startLogLevelFlag, "logLevel", "", "Log level: debug, info, warn, or error (env: LOG_LEVEL)")
}

// runtime is the fully wired server state
type runtime struct {
	app     *app.App
	queue   *mirror.Queue
	cleanup func()
}

func initRuntime(cfg config.Config) (*runtime, error) {
	provider := session.NewJWTProvider(cfg.TokenSecret)

	a := &app.App{
		Clock:  clock.New(),
		Config: cfg,
	}
	rt := &runtime{app: a, cleanup: func() {}}

	var remoteStore *remote.Store
	if cfg.RemoteDSN != "" {
		gormDB, err := remote.Open(cfg.RemoteDSN)
		if err != nil {
			return nil, errors.Wrap(err, "opening the hosted store")
		}

		remoteStore = remote.NewStore(gormDB, provider)
		if err := remoteStore.InitSchema(); err != nil {
			return nil, errors.Wrap(err, "initializing the hosted schema")
		}
		a.Remote = remoteStore
	}

	if cfg.IsHosted() {
		if remoteStore == nil {
			return nil, errors.New("hosted mode requires a remote DSN")
		}
		a.Records = remote.NewPort(remoteStore)

		return rt, nil
	}

	db, err := local.Open(cfg.DBPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening the embedded store")
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing the embedded schema")
	}

	localStore := local.NewStore(db)
	a.Local = localStore
	rt.cleanup = func() { db.Close() }

	if remoteStore != nil {
		rt.queue = mirror.NewQueue(mirror.NewRemoteApplier(remoteStore), mirror.DefaultQueueSize)
		a.Syncer = sync.NewService(localStore, remoteStore)
	}
	a.Records = mirror.NewStore(localStore, rt.queue)

	return rt, nil
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.New(config.Params{
		Mode:      startModeFlag,
		Port:      startPortFlag,
		DBPath:    startDBPathFlag,
		RemoteDSN: startRemoteDSNFlag,
		LogLevel:  startLogLevelFlag,
	})
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}

	log.SetLevel(cfg.LogLevel)

	rt, err := initRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.cleanup()

	provider := session.NewJWTProvider(cfg.TokenSecret)
	limiter := mw.NewRateLimiter()
	defer limiter.Stop()

	ctl := controllers.New(rt.app)
	rc := controllers.RouteConfig{
		Controllers: ctl,
		APIRoutes:   controllers.NewAPIRoutes(provider, ctl),
		RateLimiter: limiter,
	}

	handler, err := controllers.NewRouter(rt.app, rc)
	if err != nil {
		return errors.Wrap(err, "initializing router")
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"version": Version,
			"mode":    cfg.Mode,
			"port":    cfg.Port,
		}).Info("Bauhub server starting")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serving")
	case sig := <-quit:
		log.WithFields(log.Fields{
			"signal": sig.String(),
		}).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.ErrorWrap(err, "shutting down the http server")
	}

	// drain pending replication before exit so a fresh local write is not
	// lost to process death
	if rt.queue != nil {
		if err := rt.queue.Shutdown(ctx); err != nil {
			log.ErrorWrap(err, "draining the replication queue")
		}
	}

	return nil
}
