package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/contractsig/auth"
	"github.com/jonwraymond/contractsig/editgate"
	"github.com/jonwraymond/contractsig/signature"
)

type handlers struct {
	svc     *editgate.Service
	maxBody int64
}

// SaveRequest is the body of PUT /v1/contracts/{id}/signatures/{role}.
type SaveRequest struct {
	Payload json.RawMessage `json:"payload"`
}

func (h *handlers) GetSignatures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GetSignatureState(r.Context(), chi.URLParam(r, "contractID")))
}

func (h *handlers) GetEditGate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.CanEditContract(r.Context(), chi.URLParam(r, "contractID")))
}

func (h *handlers) PutSignature(w http.ResponseWriter, r *http.Request) {
	role, ok := h.authorizedRole(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req SaveRequest
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, CodeTooLarge,
				fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	h.writeMutation(w, h.svc.SaveSignature(r.Context(), chi.URLParam(r, "contractID"), role, req.Payload))
}

func (h *handlers) DeleteSignature(w http.ResponseWriter, r *http.Request) {
	role, ok := h.authorizedRole(w, r)
	if !ok {
		return
	}
	h.writeMutation(w, h.svc.RemoveSignature(r.Context(), chi.URLParam(r, "contractID"), role))
}

func (h *handlers) PostInvalidate(w http.ResponseWriter, r *http.Request) {
	h.svc.InvalidateCache(r.Context(), chi.URLParam(r, "contractID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) DeleteCache(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearCache(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// authorizedRole parses the {role} parameter and checks the caller may act
// for it. It writes the error response itself when it returns false.
func (h *handlers) authorizedRole(w http.ResponseWriter, r *http.Request) (signature.Role, bool) {
	role, err := signature.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidRole, err.Error())
		return "", false
	}
	if err := auth.CanSign(auth.IdentityFromContext(r.Context()), role); err != nil {
		writeError(w, r, http.StatusForbidden, CodeForbidden, err.Error())
		return "", false
	}
	return role, true
}

func (h *handlers) writeMutation(w http.ResponseWriter, res editgate.MutationResult) {
	switch {
	case res.Success:
		writeJSON(w, http.StatusOK, res)
	case signature.IsInvalidArgument(res.Err):
		writeJSON(w, http.StatusBadRequest, res)
	default:
		writeJSON(w, http.StatusBadGateway, res)
	}
}
