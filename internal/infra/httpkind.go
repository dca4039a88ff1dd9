package infra

import (
	"encoding/json"
	"net/http"

	"k8s.io/klog/v2"

	"github.com/anvylhq/anvyl/internal/anvylerrors"
)

// statusFor maps an error-kind to the HTTP status the §4.C table assigns
// it. Kind-to-status translation happens only at this edge; handlers
// above it deal exclusively in anvylerrors.Kind.
func statusFor(kind anvylerrors.Kind) int {
	switch kind {
	case anvylerrors.Validation:
		return http.StatusBadRequest
	case anvylerrors.NotFound:
		return http.StatusNotFound
	case anvylerrors.Conflict, anvylerrors.Invariant:
		return http.StatusConflict
	case anvylerrors.EngineUnavailable, anvylerrors.ProviderUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.Errorf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := anvylerrors.KindOf(err)
	writeJSON(w, statusFor(kind), map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return anvylerrors.Wrap(anvylerrors.Validation, "malformed request body", err)
	}
	return nil
}
