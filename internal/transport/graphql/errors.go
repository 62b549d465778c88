package graphqltransport

import (
	"context"
	"log/slog"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/graphql-go/graphql/gqlerrors"
)

const (
	CodeBadUserInput       = "BAD_USER_INPUT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
)

var _ gqlerrors.ExtendedError = (*Error)(nil)

// Error is a resolver error. Its code ends up in extensions.code.
type Error struct {
	message string
	code    string
	kind    errs.Kind
	reason  errs.Reason
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) Extensions() map[string]any {
	ext := map[string]any{"code": e.code}
	if e.code == CodeBadUserInput {
		ext["kind"] = e.kind.String()
		if e.reason != "" {
			ext["reason"] = string(e.reason)
		}
	}

	return ext
}

// toError maps a domain error to a GraphQL error. Internal errors are logged and redacted.
func toError(ctx context.Context, err error) error {
	kind := errs.KindOf(err)

	switch kind {
	case errs.KindInternal:
		slog.ErrorContext(ctx, "GraphQL resolver failed", "error", err)

		return &Error{message: errs.MessageOf(err), code: CodeInternal, kind: kind}
	case errs.KindServiceUnavailable:
		return &Error{message: errs.MessageOf(err), code: CodeServiceUnavailable, kind: kind}
	default:
		return &Error{message: errs.MessageOf(err), code: CodeBadUserInput, kind: kind, reason: errs.ReasonOf(err)}
	}
}

func result(ctx context.Context, v any, err error) (any, error) {
	if err != nil {
		return nil, toError(ctx, err)
	}

	return v, nil
}
