package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flemzord/ragraft/internal/orchestrator"
	"github.com/flemzord/ragraft/internal/security"
)

// Error kinds produced by the gateway itself. Pipeline failures use the
// orchestrator kinds.
const (
	kindInvalidRequest = "invalid_request"
	kindNotFound       = "not_found"
	kindRateLimited    = "rate_limited"
)

// notFoundMessage is the body of every 404. It does not reveal whether a
// code was malformed or unknown.
const notFoundMessage = "Not found."

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind, msg string) {
	writeJSON(w, code, errorBody{Error: errorDetail{Kind: kind, Message: msg}})
}

// writePipelineError maps a pipeline failure to its status. Messages pass
// through the redactor since upstream errors may echo request data.
func (g *Gateway) writePipelineError(w http.ResponseWriter, err error) {
	kind := orchestrator.ErrorKind(err)
	msg := err.Error()
	if g.svc.Redactor != nil {
		msg = g.svc.Redactor.Redact(msg)
	}
	writeError(w, statusFor(kind), kind, msg)
}

func statusFor(kind string) int {
	switch kind {
	case orchestrator.KindUnsupportedProvider, orchestrator.KindMissingCredential:
		return http.StatusBadRequest
	case orchestrator.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads and decodes a bounded JSON request body into v. On
// failure it writes the error response and returns false.
func (g *Gateway) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := security.ReadBody(r.Body, g.config.MaxBodyBytes)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, security.ErrBodyTooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		writeError(w, code, kindInvalidRequest, err.Error())
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (g *Gateway) internalError(w http.ResponseWriter, msg string, err error) {
	g.logger.Error("gateway: "+msg, "error", err)
	writeError(w, http.StatusInternalServerError, orchestrator.KindInternal, msg)
}
