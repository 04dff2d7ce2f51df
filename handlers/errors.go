package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"timelock/ledger"
	"timelock/types"
	"timelock/vault"
	"timelock/vm"
)

// statusFor 按错误种类映射 HTTP 状态码
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, vault.ErrInvalidUnlockTime),
		errors.Is(err, vault.ErrInvalidAmount),
		errors.Is(err, vm.ErrInvalidTx),
		errors.Is(err, vm.ErrInvalidAmount),
		errors.Is(err, vm.ErrAirdropTooLarge),
		errors.Is(err, vm.ErrUnknownKind),
		errors.Is(err, types.ErrInvalidAddress),
		errors.Is(err, types.ErrInvalidAddressLength),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrMissingSignature),
		errors.Is(err, types.ErrBadSignature):
		return http.StatusUnauthorized
	case errors.Is(err, vault.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, vault.ErrVaultNotFound),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, vault.ErrAlreadyInitialized),
		errors.Is(err, vm.ErrDuplicateTx):
		return http.StatusConflict
	case errors.Is(err, vault.ErrTransferFailure),
		errors.Is(err, vault.ErrAccountDiscriminatorMismatch),
		errors.Is(err, vault.ErrSeedsMismatch),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrNotSystemAccount),
		errors.Is(err, ledger.ErrOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, vault.ErrTooEarly):
		return http.StatusTooEarly
	case errors.Is(err, vault.ErrClockUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
)

func apiError(err error) *APIError {
	if err == nil {
		return nil
	}
	e := &APIError{Message: err.Error()}
	if pe, ok := vault.AsError(err); ok {
		e.Name = pe.Name()
		e.Code = pe.Code()
		e.Retryable = pe.Retryable()
	}
	return e
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), &ErrorResponse{Error: apiError(err)})
}
