// Package web exposes the studio over HTTP: a JSON API for generation and
// credential selection plus a WebSocket stream of state snapshots.
package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fpang/cinegen/internal/auth"
	"github.com/fpang/cinegen/internal/chat"
	"github.com/fpang/cinegen/internal/studio"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Validator checks an API key before it is selected.
type Validator func(ctx context.Context, apiKey string) error

// Options configures a Server.
type Options struct {
	// Validate is used when a credential request sets validate=true.
	Validate Validator
	// AllowedOrigins lists origins (scheme://host, any port) allowed for
	// CORS and WebSocket connections.
	AllowedOrigins []string
}

// Server routes HTTP requests to the orchestrator and keyring.
type Server struct {
	orch    *studio.Orchestrator
	keys    *auth.Keyring
	opts    Options
	hub     *Hub
	handler http.Handler
}

// NewServer builds the router and subscribes the WebSocket hub to orch.
func NewServer(orch *studio.Orchestrator, keys *auth.Keyring, opts Options) *Server {
	s := &Server{
		orch: orch,
		keys: keys,
		opts: opts,
		hub:  newHub(orch, opts.AllowedOrigins),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/generate", s.handleGenerate).Methods(http.MethodPost)
	api.HandleFunc("/variations/{n}", s.handleVariation).Methods(http.MethodPost)
	api.HandleFunc("/enhance", s.handleEnhance).Methods(http.MethodPost)
	api.HandleFunc("/credential", s.handleCredentialStatus).Methods(http.MethodGet)
	api.HandleFunc("/credential", s.handleCredentialSelect).Methods(http.MethodPost)
	api.HandleFunc("/credential", s.handleCredentialClear).Methods(http.MethodDelete)
	api.HandleFunc("/ws", s.hub.serveWS).Methods(http.MethodGet)

	s.handler = withLogging(withCORS(opts.AllowedOrigins)(withGzip(r)))
	return s
}

// Handler returns the router wrapped in logging, CORS and compression.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close disconnects WebSocket clients.
func (s *Server) Close() {
	s.hub.Close()
}

type generateRequest struct {
	Prompt          string `json:"prompt"`
	Mode            string `json:"mode"`
	Image           string `json:"image"`
	SkipEnhancement bool   `json:"skipEnhancement"`
}

type variationRequest struct {
	Mode string `json:"mode"`
}

type enhanceRequest struct {
	Prompt string `json:"prompt"`
}

type credentialRequest struct {
	APIKey   string `json:"apiKey"`
	Validate bool   `json:"validate"`
}

type credentialResponse struct {
	Selected bool   `json:"selected"`
	Source   string `json:"source,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.orch.Snapshot())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(w, r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := s.orch.Run(r.Context(), studio.Request{
		Input:           req.Prompt,
		Mode:            studio.Mode(req.Mode),
		ReferenceImage:  req.Image,
		SkipEnhancement: req.SkipEnhancement,
	})
	s.respondRun(w, snap, err)
}

func (s *Server) handleVariation(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil {
		httpError(w, http.StatusBadRequest, "variation must be 1 or 2")
		return
	}
	var req variationRequest
	if err := decodeBody(w, r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := s.orch.SelectVariation(r.Context(), n, studio.Mode(req.Mode))
	s.respondRun(w, snap, err)
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if err := decodeBody(w, r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	enh, err := s.orch.Enhance(r.Context(), req.Prompt)
	if err != nil {
		if status, ok := preconditionStatus(err); ok {
			httpError(w, status, preconditionMessage(err))
			return
		}
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":           chat.UserMessage(err),
			"credentialIssue": chat.IsCredentialIssue(err),
		})
		return
	}
	respondJSON(w, http.StatusOK, enh)
}

func (s *Server) handleCredentialStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, credentialResponse{
		Selected: s.keys.HasSelected(r.Context()),
		Source:   s.keys.Source(),
	})
}

// handleCredentialSelect selects the posted key. Without a key it falls back
// to the server's configured sources.
func (s *Server) handleCredentialSelect(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decodeBody(w, r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	key := strings.TrimSpace(req.APIKey)

	if key == "" {
		if err := s.keys.Select(r.Context()); err != nil {
			log.Info().Err(err).Msg("No server-side API key available")
			httpError(w, http.StatusPreconditionFailed, chat.MsgCredentialMissing)
			return
		}
		s.handleCredentialStatus(w, r)
		return
	}

	if req.Validate && s.opts.Validate != nil {
		if err := s.opts.Validate(r.Context(), key); err != nil {
			log.Warn().Err(err).Msg("API key validation failed")
			var valErr *auth.ValidationError
			if errors.As(err, &valErr) && valErr.Type == auth.ErrTypeInvalidKey {
				httpError(w, http.StatusUnauthorized, chat.MsgCredentialRejected)
				return
			}
			httpError(w, http.StatusBadGateway, err.Error())
			return
		}
	}

	if err := s.keys.Set(key, "web"); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.handleCredentialStatus(w, r)
}

func (s *Server) handleCredentialClear(w http.ResponseWriter, r *http.Request) {
	s.keys.Clear()
	respondJSON(w, http.StatusOK, credentialResponse{Selected: false})
}

// respondRun maps precondition failures to status codes. A run that started
// and failed is a 200 whose snapshot carries the error.
func (s *Server) respondRun(w http.ResponseWriter, snap studio.Snapshot, err error) {
	if err != nil {
		if status, ok := preconditionStatus(err); ok {
			httpError(w, status, preconditionMessage(err))
			return
		}
	}
	respondJSON(w, http.StatusOK, snap)
}

func preconditionStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, studio.ErrBusy):
		return http.StatusConflict, true
	case errors.Is(err, studio.ErrCredentialMissing):
		return http.StatusPreconditionFailed, true
	case errors.Is(err, studio.ErrEmptyPrompt),
		errors.Is(err, studio.ErrInvalidMode),
		errors.Is(err, studio.ErrNoVariation):
		return http.StatusBadRequest, true
	}
	return 0, false
}

func preconditionMessage(err error) string {
	if errors.Is(err, studio.ErrCredentialMissing) {
		return chat.MsgCredentialMissing
	}
	return err.Error()
}
