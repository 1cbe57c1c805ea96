// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/stakewell/stakewell/api/pools"
	"github.com/stakewell/stakewell/api/subscriptions"
	"github.com/stakewell/stakewell/api/tokens"
	"github.com/stakewell/stakewell/pool"
)

type Options struct {
	AllowedOrigins string
	EnableMetrics  bool
}

// New returns the api handler and a close function that terminates
// active subscriptions.
func New(engine *pool.Engine, opts Options) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	pools.New(engine).
		Mount(router, "/pools")
	tokens.New(engine).
		Mount(router, "/tokens")
	subs := subscriptions.New(engine, origins)
	subs.Mount(router, "/subscriptions")

	if opts.EnableMetrics {
		router.Use(metricsHandler)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	return handler.ServeHTTP, subs.Close
}
