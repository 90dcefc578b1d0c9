package httpapi

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/hupe1980/middb"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

const defaultTopK = 3

// Handler implements the HTTP API described for the storage engine: a
// set of routes bound to a single *middb.Engine.
type Handler struct {
	engine *middb.Engine
	mux    *http.ServeMux
}

// New builds a Handler wired to engine and registers all routes.
func New(engine *middb.Engine) *Handler {
	h := &Handler{engine: engine, mux: http.NewServeMux()}
	h.mux.HandleFunc("POST /insert", h.handleInsert)
	h.mux.HandleFunc("POST /update", h.handleUpdate)
	h.mux.HandleFunc("POST /delete", h.handleDelete)
	h.mux.HandleFunc("GET /queryField/{table}", h.handleQueryField)
	h.mux.HandleFunc("POST /queryEmbedding/{table}", h.handleQueryEmbedding)
	h.mux.HandleFunc("POST /queryHybrid/{table}", h.handleQueryHybrid)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type upsertRequest struct {
	Table     string            `json:"table"`
	ID        string            `json:"id"`
	Fields    map[string]string `json:"fields"`
	Embedding []float32         `json:"embedding"`
}

type deleteRequest struct {
	Table string `json:"table"`
	ID    string `json:"id"`
}

type queryEmbeddingRequest struct {
	Embedding []float32 `json:"embedding"`
	TopK      int       `json:"topK"`
}

type queryHybridRequest struct {
	Field     string    `json:"field"`
	Value     string    `json:"value"`
	Embedding []float32 `json:"embedding"`
	TopK      int       `json:"topK"`
}

func (h *Handler) handleInsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validTableName(w, req.Table) {
		return
	}
	if err := h.engine.Insert(r.Context(), req.Table, req.ID, req.Fields, req.Embedding); err != nil {
		writeError(w, err)
		return
	}
	writeStatusOK(w)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validTableName(w, req.Table) {
		return
	}
	if err := h.engine.Update(r.Context(), req.Table, req.ID, req.Fields, req.Embedding); err != nil {
		writeError(w, err)
		return
	}
	writeStatusOK(w)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validTableName(w, req.Table) {
		return
	}
	if err := h.engine.Delete(r.Context(), req.Table, req.ID); err != nil {
		writeError(w, err)
		return
	}
	writeStatusOK(w)
}

func (h *Handler) handleQueryField(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	if !validTableName(w, table) {
		return
	}
	field := r.URL.Query().Get("field")
	value := r.URL.Query().Get("value")

	ids, err := h.engine.QueryField(r.Context(), table, field, value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, ids)
}

func (h *Handler) handleQueryEmbedding(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	if !validTableName(w, table) {
		return
	}
	var req queryEmbeddingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TopK <= 0 {
		req.TopK = defaultTopK
	}

	ids, err := h.engine.QueryEmbedding(r.Context(), table, req.Embedding, req.TopK)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, ids)
}

func (h *Handler) handleQueryHybrid(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	if !validTableName(w, table) {
		return
	}
	var req queryHybridRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TopK <= 0 {
		req.TopK = defaultTopK
	}

	ids, err := h.engine.QueryHybrid(r.Context(), table, req.Field, req.Value, req.Embedding, req.TopK)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, ids)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, &middb.ErrBadRequest{Reason: "malformed JSON body: " + err.Error()})
		return false
	}
	return true
}

func validTableName(w http.ResponseWriter, table string) bool {
	if !tableNamePattern.MatchString(table) {
		writeError(w, &middb.ErrBadRequest{Reason: "invalid table name: " + table})
		return false
	}
	return true
}

func writeStatusOK(w http.ResponseWriter) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
