/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
Package server serves the pool time over HTTP.

	GET    /api/time      current TimeInfo as JSON, JSONP with ?callback=
	GET    /api/ntp       same as /api/time
	GET    /api/sources   status of every time source
	PUT    /api/debug     ?time=<RFC3339>&leap=<-1|0|1> switch to simulated time
	DELETE /api/debug     back to real time

The debug routes only exist when enabled.
*/
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"github.com/timepool/poolclock/pool"
	"github.com/timepool/poolclock/stats"
)

const shutdownTimeout = 5 * time.Second

var callbackRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]*$`)

// Provider is what the server publishes, implemented by pool.Poller
type Provider interface {
	TimeInfo() pool.TimeInfo
	Sources() stats.SourceStats
	SetDebugTime(base time.Time, leap int)
	ClearDebugTime()
}

// Server is the HTTP time API
type Server struct {
	// mu serializes all access to the provider
	mu       sync.Mutex
	provider Provider
	debugAPI bool
	origins  []string
}

// New returns a Server publishing p. origins restricts CORS, empty allows all
func New(p Provider, debugAPI bool, origins []string) *Server {
	return &Server{
		provider: p,
		debugAPI: debugAPI,
		origins:  origins,
	}
}

// Handler returns the routes of the API with CORS applied
func (s *Server) Handler() http.Handler {
	r := &httprouter.Router{
		RedirectTrailingSlash:  true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, "endpoint not found")
		}),
	}
	r.GET("/api/time", s.handleTime)
	r.GET("/api/ntp", s.handleTime)
	r.GET("/api/sources", s.handleSources)
	if s.debugAPI {
		r.PUT("/api/debug", s.handleSetDebug)
		r.DELETE("/api/debug", s.handleClearDebug)
	}
	methods := []string{http.MethodGet, http.MethodOptions}
	if s.debugAPI {
		methods = append(methods, http.MethodPut, http.MethodDelete)
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: methods,
	}).Handler(r)
}

// Start serves the API on addr until ctx is done
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Errorf("shutting down http server: %v", err)
		}
	}()
	log.Infof("Starting time API on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	js, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Cache-Control", "no-cache, no-store")
	callback := r.URL.Query().Get("callback")
	if callback == "" {
		w.Header().Set("Content-Type", "application/json")
		_, err = w.Write(js)
	} else {
		if !callbackRe.MatchString(callback) {
			writeError(w, http.StatusBadRequest, "invalid callback name")
			return
		}
		w.Header().Set("Content-Type", "application/javascript")
		_, err = fmt.Fprintf(w, "%s(%s)", callback, js)
	}
	if err != nil {
		log.Errorf("Failed to reply: %v", err)
	}
}

func (s *Server) handleTime(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.mu.Lock()
	info := s.provider.TimeInfo()
	s.mu.Unlock()
	writeJSON(w, r, info)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.mu.Lock()
	sources := s.provider.Sources()
	s.mu.Unlock()
	writeJSON(w, r, sources)
}

func (s *Server) handleSetDebug(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	base, err := time.Parse(time.RFC3339Nano, q.Get("time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid time: %v", err))
		return
	}
	leap := 0
	if l := q.Get("leap"); l != "" {
		leap, err = strconv.Atoi(l)
		if err != nil || leap < -1 || leap > 1 {
			writeError(w, http.StatusBadRequest, "leap must be -1, 0 or 1")
			return
		}
	}
	s.mu.Lock()
	s.provider.SetDebugTime(base, leap)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearDebug(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.mu.Lock()
	s.provider.ClearDebugTime()
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
