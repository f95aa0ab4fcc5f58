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

package controllers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/bauhub/bauhub/pkg/server/app"
	mw "github.com/bauhub/bauhub/pkg/server/middleware"
	"github.com/bauhub/bauhub/pkg/server/schema"
	"github.com/bauhub/bauhub/pkg/server/session"
)

// Route represents a single route
type Route struct {
	Method    string
	Pattern   string
	Handler   http.HandlerFunc
	RateLimit bool
}

// RouteConfig is the configuration for routes
type RouteConfig struct {
	Controllers *Controllers
	APIRoutes   []Route
	RateLimiter *mw.RateLimiter
}

// NewAPIRoutes returns the api routes. Each managed table gets its own set
// of CRUD routes; a table name outside the managed set therefore resolves
// to no route at all.
func NewAPIRoutes(p session.Provider, c *Controllers) []Route {
	ret := []Route{
		{"POST", "/v3/sync/pull", mw.Auth(p, c.Sync.Pull), false},
		{"POST", "/v3/sync/push", mw.Auth(p, c.Sync.Push), false},
		{"POST", "/v3/identity/sync", mw.Auth(p, c.Sync.Identity), false},
	}

	for _, table := range schema.TableNames() {
		ret = append(ret,
			Route{"GET", fmt.Sprintf("/v3/%s", table), mw.Auth(p, c.Records.Index(table)), true},
			Route{"POST", fmt.Sprintf("/v3/%s", table), mw.Auth(p, c.Records.Upsert(table)), true},
			Route{"DELETE", fmt.Sprintf("/v3/%s/{key}", table), mw.Auth(p, c.Records.Delete(table)), true},
		)
	}

	return ret
}

func registerRoutes(router *mux.Router, wrapper mw.Middleware, routes []Route) {
	for _, route := range routes {
		wrappedHandler := wrapper(route.Handler, route.RateLimit)

		router.
			Handle(route.Pattern, wrappedHandler).
			Methods(route.Method)
	}
}

// NewRouter creates and returns a new router
func NewRouter(app *app.App, rc RouteConfig) (http.Handler, error) {
	if err := app.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating the app parameters")
	}

	router := mux.NewRouter().StrictSlash(true)

	apiRouter := router.PathPrefix("/api").Subrouter()
	registerRoutes(apiRouter, mw.NewAPIMw(rc.RateLimiter), rc.APIRoutes)

	router.PathPrefix("/api/v1").Handler(mw.ApplyLimit(rc.RateLimiter, mw.NotSupported, true))
	router.PathPrefix("/api/v2").Handler(mw.ApplyLimit(rc.RateLimiter, mw.NotSupported, true))

	router.HandleFunc("/health", rc.Controllers.Health.Index).Methods("GET")

	return mw.Global(router), nil
}
