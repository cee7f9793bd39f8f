// Package serve exposes the pipeline over HTTP. One endpoint does the
// work: POST /ask takes a prompt plus optional input data and returns
// the finalized output with a media type matching the requested
// format.
package serve

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/calebcgates/ImproveLLMStructure/pkg/adapter"
	"github.com/calebcgates/ImproveLLMStructure/pkg/format"
	"github.com/calebcgates/ImproveLLMStructure/pkg/ingest"
	"github.com/calebcgates/ImproveLLMStructure/pkg/pipeline"
)

// maxBodyBytes caps request bodies. Pipelines embed the body in model
// prompts, so unbounded input would be unbounded prompt.
const maxBodyBytes = 1 << 20

// Server handles HTTP requests against one pipeline.
type Server struct {
	pipeline *pipeline.Pipeline
	formats  *format.Registry
	logf     func(format string, args ...any)
}

// NewServer creates an HTTP server over the given pipeline.
func NewServer(p *pipeline.Pipeline, formats *format.Registry) *Server {
	if formats == nil {
		formats = format.Default()
	}
	return &Server{pipeline: p, formats: formats, logf: log.Printf}
}

// SetLogger replaces the default standard-library logger.
func (s *Server) SetLogger(logf func(format string, args ...any)) {
	s.logf = logf
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ask", s.handleAsk)
	mux.HandleFunc("/formats", s.handleFormats)
	mux.HandleFunc("/healthz", s.handleHealth)
	return withCORS(mux)
}

// askRequest is the JSON request body for /ask.
type askRequest struct {
	Prompt string `json:"prompt"`
	Format string `json:"format,omitempty"`
	Intent string `json:"intent,omitempty"`
	// Data is optional input the prompt operates on.
	Data string `json:"data,omitempty"`
	// DataContentType labels Data when it is not plain text.
	DataContentType string `json:"data_content_type,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	req, err := s.parseAskRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	result, err := s.pipeline.Run(r.Context(), req)
	if err != nil {
		s.logf("serve: pipeline run failed: %v", err)
		if adapter.IsTransport(err) {
			writeError(w, http.StatusBadGateway, "upstream model unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Invalid-but-rendered output is still served; the headers carry
	// the verdict so callers can decide how much to trust the body.
	w.Header().Set("Content-Type", s.mediaType(result.Format))
	w.Header().Set("X-Output-Format", result.Format)
	if result.Report.Valid {
		w.Header().Set("X-Output-Valid", "true")
	} else {
		w.Header().Set("X-Output-Valid", "false")
		w.Header().Set("X-Output-Error", string(result.Report.Kind))
	}
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, result.Output)
}

// parseAskRequest maps the HTTP request onto the pipeline request
// shape. JSON bodies carry everything in fields; any other content
// type makes the body the input data and moves prompt, format, and
// intent to query parameters.
func (s *Server) parseAskRequest(r *http.Request) (ingest.Request, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return ingest.Request{}, err
	}

	contentType := strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0])
	if contentType == "application/json" || contentType == "" {
		var req askRequest
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return ingest.Request{}, err
			}
		}
		dataContentType := req.DataContentType
		if req.Data != "" && dataContentType == "" {
			dataContentType = "text/plain"
		}
		return ingest.Request{
			Prompt:      req.Prompt,
			Format:      req.Format,
			RawIntent:   req.Intent,
			ContentType: dataContentType,
			Body:        req.Data,
		}, nil
	}

	query := r.URL.Query()
	return ingest.Request{
		Prompt:      query.Get("prompt"),
		Format:      query.Get("format"),
		RawIntent:   query.Get("intent"),
		ContentType: contentType,
		Body:        string(body),
	}, nil
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"formats": s.formats.Names()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, `{"status":"ok"}`)
}

// mediaType maps a format to the response content type.
func (s *Server) mediaType(name string) string {
	spec, ok := s.formats.Lookup(name)
	if !ok {
		return "text/plain; charset=utf-8"
	}
	switch spec.Family {
	case format.FamilyData:
		return "application/json"
	case format.FamilyMarkup:
		return "text/html; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message})
}

// withCORS allows cross-origin browser callers, preflight included.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
