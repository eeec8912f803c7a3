// Package server implements channelkit serve: a local HTTP API exposing
// descriptor validation, dry-run planning, and run history to editors and
// CI without shelling out to the CLI per request.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/channelkit/channelkit/pkg/cache"
	"github.com/channelkit/channelkit/pkg/errors"
	"github.com/channelkit/channelkit/pkg/graph"
	"github.com/channelkit/channelkit/pkg/plan"
	"github.com/channelkit/channelkit/pkg/schema"
	"github.com/channelkit/channelkit/pkg/session"
	"github.com/channelkit/channelkit/pkg/store"
)

// Options configures the optional server collaborators.
type Options struct {
	// Session authenticates API callers: requests must present its access
	// token as a bearer token. A nil session, or one without a token
	// (session.Local), leaves the API open.
	Session *session.Session

	// Cache holds computed plans keyed by descriptor content, scoped to
	// the session's user. Nil disables plan caching.
	Cache cache.Cache

	// PlanTTL bounds how long cached plans live. Zero stores forever.
	PlanTTL time.Duration
}

// Server handles the serve-mode HTTP API.
type Server struct {
	store   store.Store
	cache   cache.Cache
	keyer   cache.Keyer
	sess    *session.Session
	planTTL time.Duration
	logger  *log.Logger
}

// New creates a server over the given run store.
func New(st store.Store, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.Default()
	}
	keyer := cache.NewDefaultKeyer()
	if uid := opts.Session.UserID(); uid != "" {
		keyer = cache.NewScopedKeyer(keyer, uid+":")
	}
	return &Server{
		store:   st,
		cache:   opts.Cache,
		keyer:   keyer,
		sess:    opts.Session,
		planTTL: opts.PlanTTL,
		logger:  logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/validate", s.handleValidate)
		r.Post("/plan", s.handlePlan)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("serving API", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// requireAuth checks the bearer token against the serving session. With no
// session token configured (serve --no-auth), every request passes.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.sess == nil || s.sess.AccessToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if tok == "" || tok != s.sess.AccessToken {
			writeError(w, errors.New(errors.ErrCodeUnauthorized, "missing or invalid bearer token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validateRequest carries a descriptor plus optional node type manifests,
// both as raw YAML. Channel and Name only label the run record.
type validateRequest struct {
	Graph   string   `json:"graph"`
	Nodes   []string `json:"nodes,omitempty"`
	Channel string   `json:"channel,omitempty"`
	Name    string   `json:"name,omitempty"`
}

// finding is one lint result on the wire.
type finding struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type validateResponse struct {
	Valid    bool      `json:"valid"`
	Findings []finding `json:"findings,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body"))
		return
	}
	g, reg, err := parseGraphPayload(req.Graph, req.Name, req.Nodes)
	if err != nil {
		writeError(w, err)
		return
	}

	findings := graph.Validate(g)
	findings = append(findings, reg.ValidateGraph(g)...)

	status := "valid"
	if len(findings) > 0 {
		status = "invalid"
	}
	s.record(r.Context(), &store.Record{
		Kind:      store.KindValidate,
		Channel:   req.Channel,
		GraphName: g.Name,
		Status:    status,
	})

	resp := validateResponse{Valid: len(findings) == 0}
	for _, f := range findings {
		resp.Findings = append(resp.Findings, finding{
			Code:    string(errors.GetCode(f)),
			Message: errors.UserMessage(f),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type planRequest struct {
	Graph   string   `json:"graph"`
	Nodes   []string `json:"nodes,omitempty"`
	Seed    int64    `json:"seed"`
	Channel string   `json:"channel,omitempty"`
	Name    string   `json:"name,omitempty"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body"))
		return
	}

	key := s.planCacheKey(req)
	if s.cache != nil {
		if data, ok, err := s.cache.Get(r.Context(), key); err == nil && ok {
			s.recordPlan(r.Context(), req)
			writeRawJSON(w, data)
			return
		}
	}

	g, reg, err := parseGraphPayload(req.Graph, req.Name, req.Nodes)
	if err != nil {
		writeError(w, err)
		return
	}
	if findings := graph.Validate(g); len(findings) > 0 {
		writeError(w, findings[0])
		return
	}

	p, err := plan.Build(g, reg, plan.Options{Seed: req.Seed})
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := json.Marshal(p)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "encode plan"))
		return
	}
	if s.cache != nil {
		_ = s.cache.Set(r.Context(), key, data, s.planTTL)
	}
	s.recordPlan(r.Context(), req)
	writeRawJSON(w, data)
}

// planCacheKey keys a plan by the full request payload: descriptor bytes,
// node manifests, and seed, scoped to the serving user.
func (s *Server) planCacheKey(req planRequest) string {
	payload := req.Graph + "\x00" + strings.Join(req.Nodes, "\x00")
	return s.keyer.PlanKey(cache.Hash([]byte(payload)), cache.PlanKeyOpts{Seed: req.Seed})
}

func (s *Server) recordPlan(ctx context.Context, req planRequest) {
	seed := req.Seed
	name := req.Name
	if name == "" {
		name = "request"
	}
	s.record(ctx, &store.Record{
		Kind:      store.KindPlan,
		Channel:   req.Channel,
		GraphName: name,
		Status:    "planned",
		Seed:      &seed,
	})
}

// record persists a run record. History is best effort; a failing store
// never fails the request.
func (s *Server) record(ctx context.Context, rec *store.Record) {
	now := time.Now()
	rec.ID = uuid.NewString()
	rec.SubmittedBy = s.sess.UserID()
	rec.SubmittedAt = now
	rec.UpdatedAt = now
	if err := s.store.Put(ctx, rec); err != nil {
		s.logger.Warn("record run", "kind", rec.Kind, "err", err)
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := s.store.List(r.Context(), r.URL.Query().Get("channel"), limit)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "list runs"))
		return
	}
	if recs == nil {
		recs = []*store.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, errors.New(errors.ErrCodeNotFound, "run not found"))
			return
		}
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "get run"))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func parseGraphPayload(graphYAML, name string, nodeYAMLs []string) (*graph.Graph, *schema.Registry, error) {
	if graphYAML == "" {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "request missing graph")
	}
	if name == "" {
		name = "request"
	}
	g, err := graph.Load(strings.NewReader(graphYAML), name)
	if err != nil {
		return nil, nil, err
	}

	reg := schema.NewRegistry()
	for i, src := range nodeYAMLs {
		if err := reg.Load(strings.NewReader(src), "nodes["+strconv.Itoa(i)+"]"); err != nil {
			return nil, nil, err
		}
	}
	return g, reg, nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidGraph, errors.ErrCodeInvalidValue,
		errors.ErrCodeInvalidManifest, errors.ErrCodeUnknownNodeType, errors.ErrCodeUnknownPort,
		errors.ErrCodeUnresolvedRef, errors.ErrCodeGraphCycle, errors.ErrCodeUnsupported:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound, errors.ErrCodeVolumeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeUnauthorized, errors.ErrCodeSessionExpired:
		status = http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		status = http.StatusForbidden
	}
	writeJSON(w, status, errorResponse{
		Code:    string(errors.GetCode(err)),
		Message: errors.UserMessage(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
