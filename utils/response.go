package utils

import (
	"encoding/json"
	"net/http"
)

type M map[string]any

// Pagination mirrors the envelope the web client paginates with.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// RespondWithError writes the error envelope every endpoint shares:
// {"success": false, "error": msg}.
func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, M{"success": false, "error": msg})
}

// RespondWithData writes the success envelope: {"success": true, "data": ...}.
func RespondWithData(w http.ResponseWriter, code int, data any) {
	RespondWithJSON(w, code, M{"success": true, "data": data})
}

// RespondWithList writes a counted, optionally paginated success envelope.
func RespondWithList(w http.ResponseWriter, code int, data any, count int, p *Pagination) {
	resp := M{"success": true, "count": count, "data": data}
	if p != nil {
		resp["pagination"] = *p
	}
	RespondWithJSON(w, code, resp)
}
