package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/vozcidada/gateway/internal/auth"
	"github.com/vozcidada/gateway/internal/backend"
	"github.com/vozcidada/gateway/internal/cep"
	"github.com/vozcidada/gateway/internal/chamado"
	"github.com/vozcidada/gateway/internal/oauth"
	"github.com/vozcidada/gateway/internal/session"
	"github.com/vozcidada/gateway/internal/staff"
	"github.com/vozcidada/gateway/internal/storage"
	"github.com/vozcidada/gateway/internal/util"
)

// SuccessEnvelope padroniza respostas com dados.
type SuccessEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

// ErrorEnvelope padroniza respostas de erro.
type ErrorEnvelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody descreve falhas normalizadas.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// WriteJSON escreve envelope de sucesso.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessEnvelope{Data: data, Error: nil})
}

// WriteError escreve envelope de erro e mantém formato consistente.
func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Data:  nil,
		Error: &ErrorBody{Code: code, Message: message, Details: details},
	})
}

type errorMapping struct {
	targets []error
	status  int
	code    string
}

// A ordem importa: erros de domínio embrulham erros do backend.
var errorMappings = []errorMapping{
	{[]error{session.ErrInvalidCredentials, session.ErrNotAuthenticated, auth.ErrMalformedToken, auth.ErrExpiredToken, oauth.ErrNoEmail}, http.StatusUnauthorized, "AUTH"},
	{[]error{session.ErrAddressLookup, cep.ErrInvalid, session.ErrPasswordChange, oauth.ErrInvalidState}, http.StatusBadRequest, "VALIDATION"},
	{[]error{chamado.ErrInvalidStatus, chamado.ErrInvalidSecretaria, chamado.ErrNotConcluded, staff.ErrInvalidSecretaria}, http.StatusBadRequest, "VALIDATION"},
	{[]error{storage.ErrEmptyFile, storage.ErrTooLarge, storage.ErrNotImage}, http.StatusBadRequest, "VALIDATION"},
	{[]error{session.ErrAccountExists, chamado.ErrAlreadyRated, staff.ErrEmailInUse}, http.StatusConflict, "CONFLICT"},
	{[]error{session.ErrNotIncomplete, session.ErrNotOwner, session.ErrNoCitizenProfile}, http.StatusForbidden, "FORBIDDEN"},
	{[]error{chamado.ErrForbidden, chamado.ErrNoSecretaria, staff.ErrForbidden}, http.StatusForbidden, "FORBIDDEN"},
	{[]error{chamado.ErrNotFound, staff.ErrNotFound, oauth.ErrNotConfigured}, http.StatusNotFound, "NOT_FOUND"},
	{[]error{session.ErrProfileFetch}, http.StatusBadGateway, "UPSTREAM"},
	{[]error{storage.ErrDisabled, backend.ErrUnavailable}, http.StatusServiceUnavailable, "UPSTREAM"},
	{[]error{backend.ErrTimeout, cep.ErrTimeout}, http.StatusGatewayTimeout, "TIMEOUT"},
	{[]error{cep.ErrUnavailable}, http.StatusBadGateway, "UPSTREAM"},
	{[]error{backend.ErrUnauthorized}, http.StatusUnauthorized, "AUTH"},
	{[]error{backend.ErrForbidden}, http.StatusForbidden, "FORBIDDEN"},
	{[]error{backend.ErrNotFound}, http.StatusNotFound, "NOT_FOUND"},
	{[]error{backend.ErrConflict}, http.StatusConflict, "CONFLICT"},
}

// writeServiceError traduz erros de domínio para o envelope padrão.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *util.ValidationError
	if errors.As(err, &verr) {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "dados inválidos", verr.Fields)
		return
	}

	for _, m := range errorMappings {
		for _, target := range m.targets {
			if errors.Is(err, target) {
				WriteError(w, m.status, m.code, messageFor(target), nil)
				return
			}
		}
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		log.Warn().Err(err).Int("status", apiErr.Status).Msg("erro não mapeado do backend")
		WriteError(w, http.StatusBadGateway, "UPSTREAM", "falha no serviço de dados", nil)
		return
	}

	log.Error().Err(err).Msg("erro interno")
	WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
}

// O cliente recebe só a mensagem do sentinel; o erro embrulhado pode trazer
// URLs e endereços internos.
func messageFor(target error) string {
	return target.Error()
}
