// Package request decodes REST request bodies, query strings and path values.
package request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
	"github.com/gorilla/schema"
)

const maxBodyBytes = 1 << 20

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)

	return d
}

// Query decodes the URL query into dst, whose fields carry schema tags.
func Query(r *http.Request, dst any) error {
	if err := decoder.Decode(dst, r.URL.Query()); err != nil {
		return errs.Validation("invalid query parameters: %v", err)
	}

	return nil
}

// JSON decodes a JSON body into dst.
func JSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.Validation("request body is required")
		}

		return errs.Validation("invalid request body: %v", err)
	}

	return nil
}

// PageQuery is the page and limit query parameters.
type PageQuery struct {
	Page  int `schema:"page"`
	Limit int `schema:"limit"`
}

// ToPage converts the query to a page request; the service applies defaults and bounds.
func (q PageQuery) ToPage() pagination.Page {
	return pagination.Page{Page: q.Page, Limit: q.Limit}
}
