package graphqltransport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const maxBodyBytes = 1 << 20

type params struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// Handler executes GraphQL requests sent as a JSON POST body or as GET query
// parameters.
type Handler struct {
	schema *Schema
}

func NewHandler(schema *Schema) *Handler {
	return &Handler{schema: schema}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, msg := decode(w, r)
	if msg != "" {
		status := http.StatusBadRequest
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			status = http.StatusMethodNotAllowed
			w.Header().Set("Allow", "GET, POST")
		}
		writeJSON(w, r, status, map[string]any{"errors": []map[string]string{{"message": msg}}})

		return
	}

	ctx, span := otel.Tracer("shop-svc").Start(r.Context(), "GraphQL.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("graphql.operation.name", req.OperationName))

	res := h.schema.Execute(ctx, req.Query, req.OperationName, req.Variables)

	writeJSON(w, r, http.StatusOK, res)
}

func decode(w http.ResponseWriter, r *http.Request) (params, string) {
	var req params

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				return req, "variables must be a JSON object"
			}
		}
	case http.MethodPost:
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			return req, "request body must be a JSON object with a query"
		}
	default:
		return req, "only GET and POST are supported"
	}

	if req.Query == "" {
		return req, "query is required"
	}

	return req, ""
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Error writing GraphQL response", "error", err)
	}
}
