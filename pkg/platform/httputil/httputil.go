package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "hemobank/pkg/domain-errors"
)

// statusByCode maps domain error codes to HTTP statuses. Anything unmapped is
// treated as an internal error.
var statusByCode = map[dErrors.Code]int{
	dErrors.CodeInvalidInput:      http.StatusBadRequest,
	dErrors.CodeBadRequest:        http.StatusBadRequest,
	dErrors.CodeUnauthorized:      http.StatusUnauthorized,
	dErrors.CodePermissionDenied:  http.StatusForbidden,
	dErrors.CodeNotFound:          http.StatusNotFound,
	dErrors.CodeConflict:          http.StatusConflict,
	dErrors.CodeInvalidState:      http.StatusConflict,
	dErrors.CodeInsufficientStock: http.StatusConflict,
	dErrors.CodePersistenceFailed: http.StatusBadGateway,
	dErrors.CodeInconsistentState: http.StatusInternalServerError,
	dErrors.CodeTimeout:           http.StatusGatewayTimeout,
	dErrors.CodeInternal:          http.StatusInternalServerError,
}

// WriteError renders a domain error as the standard JSON error envelope.
// Internal and inconsistent-state responses omit the description so storage
// details never leak to callers; operators get them from logs instead.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		code = dErrors.CodeInternal
		status = http.StatusInternalServerError
	}

	body := map[string]string{"error": string(code)}
	// Internal failures keep their detail out of responses; everything else
	// surfaces the caller-safe message, including persistence failures whose
	// message states whether compensation held.
	if code != dErrors.CodeInternal && code != dErrors.CodeInconsistentState {
		var de *dErrors.Error
		if errors.As(err, &de) && de.Message != "" {
			body["error_description"] = de.Message
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSON renders a success payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
