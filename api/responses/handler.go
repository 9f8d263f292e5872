package responses

import (
	"net/http"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// HandlerFunc is an endpoint that reports failure by returning it. The
// success body must already be written when it returns nil.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handle adapts fn to net/http, rendering any returned error through
// WriteError.
func Handle(logg *logger.Logger, fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			WriteError(r.Context(), logg, w, err)
		}
	}
}

// Unavailable is returned by handlers built without their backing service.
func Unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
