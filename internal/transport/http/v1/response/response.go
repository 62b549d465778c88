// Package response writes the JSON envelopes of the REST API.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
)

type body struct {
	Success    bool      `json:"success"`
	Count      *int      `json:"count,omitempty"`
	Pagination *pageInfo `json:"pagination,omitempty"`
	Data       any       `json:"data"`
}

type pageInfo struct {
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Pages   int  `json:"pages"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func write(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Error writing response", "path", r.URL.Path, "error", err)
	}
}

// OK writes data with status 200.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	write(w, r, http.StatusOK, body{Success: true, Data: data})
}

// Created writes data with status 201.
func Created(w http.ResponseWriter, r *http.Request, data any) {
	write(w, r, http.StatusCreated, body{Success: true, Data: data})
}

// Page writes one page of items converted to their views.
func Page[T any, V any](w http.ResponseWriter, r *http.Request, res pagination.Result[T], view func(T) V) {
	items := make([]V, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, view(it))
	}
	count := len(items)

	write(w, r, http.StatusOK, body{
		Success: true,
		Count:   &count,
		Pagination: &pageInfo{
			Total:   res.Total,
			Page:    res.Page,
			Pages:   res.Pages(),
			Limit:   res.Limit,
			HasMore: res.HasMore,
		},
		Data: items,
	})
}

// Status maps an error kind to its HTTP status.
func Status(err error) int {
	switch errs.KindOf(err) {
	case errs.KindValidation, errs.KindImmutableOrderState:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as an error envelope. Internal errors are logged and redacted.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)

	switch status {
	case http.StatusInternalServerError:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		write(w, r, status, errorBody{Error: errs.MessageOf(err)})
	case http.StatusServiceUnavailable:
		write(w, r, status, errorBody{
			Error:   "Service temporarily unavailable",
			Message: errs.MessageOf(err),
		})
	default:
		write(w, r, status, errorBody{Error: errs.MessageOf(err)})
	}
}

// NotFound answers requests for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	write(w, r, http.StatusNotFound, errorBody{Error: "route " + r.Method + " " + r.URL.Path + " not found"})
}
