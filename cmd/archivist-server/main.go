// Command archivist-server exposes the ingest/retrieve pipeline over a thin
// HTTP surface (§6): stdlib net/http, a plain mux, one writeJSON helper. The
// HTTP layer itself is out of spec scope; it only adapts JSON in/out and
// maps domain error kinds to status classes (§7).
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/archivist-dev/archivist/core/llmclient"
	"github.com/archivist-dev/archivist/helper"
	"github.com/archivist-dev/archivist/ingest"
	"github.com/archivist-dev/archivist/model"

	"github.com/archivist-dev/archivist"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

// statusForKind maps a domain error kind to its HTTP class per §7.
func statusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindPersistence:
		return http.StatusInternalServerError
	case model.KindRemoteService:
		return http.StatusBadGateway
	case model.KindDimensionMismatch:
		return http.StatusInternalServerError
	case model.KindConfig:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, devMode bool, err error) {
	var kinded *model.KindedError
	kind := model.ErrorKind("unknown")
	status := http.StatusInternalServerError
	if errors.As(err, &kinded) {
		kind = kinded.Kind
		status = statusForKind(kind)
	}

	env := errorEnvelope{Success: false, Kind: string(kind)}
	if devMode {
		env.Message = err.Error()
	}
	writeJSON(w, status, env)
}

type server struct {
	a          *archivist.Archivist
	strategies []model.ChunkStrategy
	devMode    bool
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.devMode, model.NewValidationError(err))
		return
	}

	resp, err := s.a.Ingest(r.Context(), req, s.strategies, nil)
	if err != nil {
		log.Printf("[ingest] error: %v", err)
		writeError(w, s.devMode, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.devMode, model.NewValidationError(err))
		return
	}

	resp, err := s.a.Retrieve(r.Context(), req)
	if err != nil {
		log.Printf("[retrieve] error: %v", err)
		writeError(w, s.devMode, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func main() {
	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		log.Fatalf("loading database configuration: %v", err)
	}
	llmConfig := llmclient.ConfigFromEnv()
	if llmConfig.ChatAPIKey == "" || llmConfig.EmbeddingAPIKey == "" {
		log.Fatalf("loading llm configuration: %v", model.NewConfigError(
			errors.New("ARCHIVIST_CHAT_API_KEY and ARCHIVIST_EMBEDDING_API_KEY must be set")))
	}

	dim := 1536
	if raw := os.Getenv("ARCHIVIST_EMBEDDING_DIM"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			log.Fatalf("parsing ARCHIVIST_EMBEDDING_DIM: %v", err)
		}
		dim = parsed
	}

	strategies, err := ingest.StrategiesFromEnv()
	if err != nil {
		log.Fatalf("loading chunk strategies: %v", err)
	}

	a, err := archivist.New(dbConfig, llmConfig, dim)
	if err != nil {
		log.Fatalf("initializing archivist: %v", err)
	}
	defer a.Close()

	srv := &server{a: a, strategies: strategies, devMode: os.Getenv("ARCHIVIST_DEV_MODE") == "true"}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/ingest", srv.handleIngest)
	mux.HandleFunc("/retrieve", srv.handleRetrieve)

	port := os.Getenv("ARCHIVIST_SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	addr := fmt.Sprintf(":%s", port)
	log.Printf("archivist-server listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
