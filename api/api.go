// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/trackmesh/trackmesh/api/admin"
	"github.com/trackmesh/trackmesh/api/nodes"
	"github.com/trackmesh/trackmesh/api/proofs"
	"github.com/trackmesh/trackmesh/api/restutil"
	"github.com/trackmesh/trackmesh/ledger"
	"github.com/trackmesh/trackmesh/log"
	"github.com/trackmesh/trackmesh/oracle"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins  string
	EnableReqLogger bool
	EnableMetrics   bool
}

// New return api router
func New(l *ledger.Ledger, height oracle.HeightSource, opts Options) http.HandlerFunc {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	nodes.New(l, height).
		Mount(router, "/nodes")
	proofs.New(l, height).
		Mount(router, "/proofs")
	admin.New(l, height).
		Mount(router, "/admin")

	router.Path("/health").Methods(http.MethodGet).HandlerFunc(
		restutil.WrapHandlerFunc(func(w http.ResponseWriter, _ *http.Request) error {
			return restutil.WriteJSON(w, restutil.M{"healthy": true})
		}))

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
		handlers.AllowedMethods([]string{"GET", "POST"}),
	)(handler)

	if opts.EnableReqLogger {
		handler = requestLogger(handler)
	}

	return handler.ServeHTTP
}

// requestLogger logs every request with its body before dispatch. The body is
// buffered and restored so downstream handlers can still read it.
func requestLogger(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			var err error
			if body, err = io.ReadAll(r.Body); err != nil {
				logger.Warn("request body read failed", "err", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		logger.Info("incoming request",
			"method", r.Method,
			"uri", r.URL.String(),
			"body", string(body),
		)
		h.ServeHTTP(w, r)
	})
}
