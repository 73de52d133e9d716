package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/assessment-engine/recommender/internal/engine"
	"github.com/assessment-engine/recommender/internal/search"
	"github.com/assessment-engine/recommender/internal/validation"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type Server struct {
	Engine *engine.Engine
	Logger *logrus.Entry
	Router chi.Router
}

func NewServer(eng *engine.Engine, logger *logrus.Entry) *Server {
	s := &Server{
		Engine: eng,
		Logger: logger,
		Router: chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	cfg := s.Engine.Config.Server

	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.RealIP)
	s.Router.Use(s.requestLogger)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	s.Router.Get("/health", s.handleHealth)
	s.Router.Handle("/metrics", promhttp.Handler())

	s.Router.Group(func(r chi.Router) {
		if cfg.RateLimitRequests > 0 {
			r.Use(httprate.Limit(cfg.RateLimitRequests, cfg.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					jsonResponse(w, http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
				}),
			))
		}

		r.Post("/recommend", s.handleRecommend)
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/search", s.handleSearch)
			r.Get("/status", s.handleStatus)
			r.Post("/reload", s.handleReload)
			r.Get("/explain", s.handleExplain)
		})
	})
}

// ServeHTTP lets the server be mounted directly on an http.Server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.Logger.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
		}).Debug("Handled request")
	})
}

// Requests and responses

type RecommendRequest struct {
	Query string `json:"query" validate:"required,notblank,max=2000"`
	TopN  *int   `json:"top_n,omitempty" validate:"omitnil,min=1"`
}

type ErrorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

type RecommendResponse struct {
	Results []AssessmentView `json:"results"`
}

type SearchResponse struct {
	Query   string           `json:"query"`
	Results []AssessmentView `json:"results"`
}

type ExplainResponse struct {
	Query   string           `json:"query"`
	Answer  string           `json:"answer"`
	Results []AssessmentView `json:"results"`
}

// AssessmentView is the wire form of one recommendation.
type AssessmentView struct {
	Name                 string  `json:"name"`
	URL                  string  `json:"url"`
	TestType             string  `json:"test_type"`
	DurationMinutes      int     `json:"duration_minutes"`
	RemoteTestingSupport bool    `json:"remote_testing_support"`
	AdaptiveIRTSupport   bool    `json:"adaptive_irt_support"`
	SimilarityScore      float64 `json:"similarity_score"`
}

func toViews(matches []search.RankedMatch) []AssessmentView {
	views := make([]AssessmentView, len(matches))
	for i, m := range matches {
		views[i] = AssessmentView{
			Name:                 m.Document.Name,
			URL:                  m.Document.URL,
			TestType:             m.Document.TestType,
			DurationMinutes:      m.Document.Duration,
			RemoteTestingSupport: m.Document.RemoteTesting,
			AdaptiveIRTSupport:   m.Document.AdaptiveIRT,
			SimilarityScore:      m.Score,
		}
	}
	return views
}

// Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.Engine.Ready() {
		jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return
	}

	if verr := validation.ValidateStruct(req); verr != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Fields: verr.Fields})
		return
	}

	matches, ok := s.recommend(w, req.Query, s.resultCount(req.TopN))
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, RecommendResponse{Results: toViews(matches)})
}

// resultCount resolves the requested top_n, falling back to the configured
// default and clamping to RECOMMEND_MAX_TOP_N.
func (s *Server) resultCount(requested *int) int {
	topN := s.Engine.Config.Recommend.DefaultTopN
	if requested != nil {
		topN = *requested
	}
	if maxTopN := s.Engine.Config.Recommend.MaxTopN; maxTopN > 0 && topN > maxTopN {
		topN = maxTopN
	}
	return topN
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req := RecommendRequest{Query: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Query 'n' must be an integer"})
			return
		}
		req.TopN = &n
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Fields: verr.Fields})
		return
	}

	matches, ok := s.recommend(w, req.Query, s.resultCount(req.TopN))
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, SearchResponse{Query: req.Query, Results: toViews(matches)})
}

// recommend runs the query and writes the error response when it fails.
func (s *Server) recommend(w http.ResponseWriter, query string, topN int) ([]search.RankedMatch, bool) {
	matches, err := s.Engine.Recommend(query, topN)
	if err != nil {
		s.writeEngineError(w, err)
		return nil, false
	}
	return matches, true
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrIndexNotReady):
		jsonResponse(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	case errors.Is(err, search.ErrInvalidTopN):
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		s.Logger.WithError(err).Error("Recommendation failed")
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.Engine.Status())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Engine.Rebuild(r.Context()); err != nil {
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	jsonResponse(w, http.StatusOK, s.Engine.Status())
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if verr := validation.ValidateStruct(RecommendRequest{Query: query}); verr != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Fields: verr.Fields})
		return
	}

	answer, matches, err := s.Engine.Explain(r.Context(), query, s.Engine.Config.Recommend.DefaultTopN)
	if err != nil {
		if matches != nil {
			s.Logger.WithError(err).Warn("Explanation failed")
			jsonResponse(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
			return
		}
		s.writeEngineError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, ExplainResponse{
		Query:   query,
		Answer:  answer,
		Results: toViews(matches),
	})
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
