package vault

import "errors"

// Error 带稳定数字码的程序错误；6000..6002 与链上程序的错误枚举一致
type Error struct {
	code      uint32
	name      string
	msg       string
	retryable bool
}

func (e *Error) Error() string { return e.msg }

// Code 数字错误码
func (e *Error) Code() uint32 { return e.code }

// Name 错误名，例如 "TooEarly"
func (e *Error) Name() string { return e.name }

// Retryable 同一调用稍后重试是否可能成功
func (e *Error) Retryable() bool { return e.retryable }

func newError(code uint32, name, msg string, retryable bool) *Error {
	return &Error{code: code, name: name, msg: msg, retryable: retryable}
}

var (
	ErrInvalidUnlockTime            = newError(6000, "InvalidUnlockTime", "unlock time must be in the future", false)
	ErrTooEarly                     = newError(6001, "TooEarly", "cannot withdraw before unlock time", true)
	ErrUnauthorized                 = newError(6002, "Unauthorized", "caller is neither owner nor recipient", false)
	ErrTransferFailure              = newError(6003, "TransferFailure", "value transfer failed", false)
	ErrAlreadyInitialized           = newError(6004, "AlreadyInitialized", "vault already initialized", false)
	ErrInvalidAmount                = newError(6005, "InvalidAmount", "lock amount must be positive", false)
	ErrVaultNotFound                = newError(6006, "VaultNotFound", "vault not found", false)
	ErrAccountDiscriminatorMismatch = newError(6007, "AccountDiscriminatorMismatch", "account is not a vault record", false)
	ErrSeedsMismatch                = newError(6008, "SeedsMismatch", "vault address does not match its seeds", false)
	ErrClockUnavailable             = newError(6009, "ClockUnavailable", "clock unavailable", true)
)

// AsError 取出错误链里的 *Error
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Code 错误链里的程序错误码，非程序错误返回 0
func Code(err error) uint32 {
	if e, ok := AsError(err); ok {
		return e.code
	}
	return 0
}

// Name 错误链里的程序错误名，非程序错误返回空串
func Name(err error) string {
	if e, ok := AsError(err); ok {
		return e.name
	}
	return ""
}

// Retryable 只有 TooEarly（以及时钟故障）值得重试
func Retryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.retryable
	}
	return false
}
