package perrors

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
)

type ErrCode struct {
	Code   string `json:"code"`
	Status int    `json:"status"`
}

var (
	ErrCodeInvalidInput        ErrCode = ErrCode{"INVALID_INPUT", http.StatusBadRequest}
	ErrCodeInvalidRequest              = ErrCode{"INVALID_REQUEST", http.StatusBadRequest}
	ErrCodeUnauthorized                = ErrCode{"UNAUTHORIZED", http.StatusUnauthorized}
	ErrCodeAdminRequired               = ErrCode{"ADMIN_REQUIRED", http.StatusForbidden}
	ErrCodeNotFound                    = ErrCode{"NOT_FOUND", http.StatusNotFound}
	ErrCodeInsufficientCredits         = ErrCode{"INSUFFICIENT_CREDITS", http.StatusBadRequest}
	ErrCodeBonusAlreadyClaimed         = ErrCode{"BONUS_ALREADY_CLAIMED", http.StatusBadRequest}
	ErrCodeAlreadyRedeemed             = ErrCode{"ALREADY_REDEEMED", http.StatusBadRequest}
	ErrCodeCodeExpired                 = ErrCode{"CODE_EXPIRED", http.StatusBadRequest}
	ErrCodeCodeExhausted               = ErrCode{"CODE_EXHAUSTED", http.StatusBadRequest}
	ErrCodeInternalServer              = ErrCode{"INTERNAL_ERROR", http.StatusInternalServerError}
)

type Err struct {
	Message    string                   `json:"-"`
	Err        string                   `json:"error"`
	Code       ErrCode                  `json:"-"`
	Stacktrace []string                 `json:"-"`
	Args       []map[string]interface{} `json:"args"`
}

func (e Err) Error() string {
	return e.Err
}

func (e Err) HttpStatus() int {
	return e.Code.Status
}

func (e Err) ErrorCode() string {
	return e.Code.Code
}

func (e Err) Print(ctx context.Context) {
	args := []any{slog.Any("error", e.Error()), slog.String("code", e.Code.Code)}
	if len(e.Args) > 0 {
		for k, v := range e.Args[0] {
			args = append(args, slog.Any(k, v))
		}
	}
	args = append(args, slog.Any("stacktrace", e.Stacktrace))
	slog.ErrorContext(ctx, e.Message, args...)
}

func New(code ErrCode, msg string, err error, args ...map[string]interface{}) error {
	pc := make([]uintptr, 20)
	count := runtime.Callers(1, pc)
	frames := runtime.CallersFrames(pc[:count])

	var stacktrace []string
	for frame, hasMore := frames.Next(); hasMore; frame, hasMore = frames.Next() {
		stacktrace = append(stacktrace, fmt.Sprintf("%s:%d", frame.File, frame.Line))
	}

	errString := "error missing"
	if err != nil {
		errString = err.Error()
	}

	return Err{
		Code:       code,
		Message:    msg,
		Err:        errString,
		Stacktrace: stacktrace,
		Args:       args,
	}
}

func NewErrInvalidInput(msg string, err error, args ...map[string]interface{}) error {
	return New(ErrCodeInvalidInput, msg, err, args...)
}

func NewErrUnauthorized(msg string, err error, args ...map[string]interface{}) error {
	return New(ErrCodeUnauthorized, msg, err, args...)
}

func NewErrAdminRequired(msg string, err error, args ...map[string]interface{}) error {
	return New(ErrCodeAdminRequired, msg, err, args...)
}

func NewErrNotFound(msg string, err error, args ...map[string]interface{}) error {
	return New(ErrCodeNotFound, msg, err, args...)
}

func NewErrInternalServerError(msg string, err error, args ...map[string]interface{}) error {
	return New(ErrCodeInternalServer, msg, err, args...)
}

func NewErrInvalidRequest(msg string, err error, args ...map[string]interface{}) error {
	return New(ErrCodeInvalidRequest, msg, err, args...)
}
