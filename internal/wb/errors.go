package wb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

// APIError — ошибка, которую вернул сам WB API: либо конверт {code, message},
// либо {error, errorText, additionalErrors}, либо просто не-2xx статус.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

type errEnvelope struct {
	Code             json.RawMessage `json:"code"`
	Message          string          `json:"message"`
	Error            bool            `json:"error"`
	ErrorText        string          `json:"errorText"`
	AdditionalErrors json.RawMessage `json:"additionalErrors"`
}

// checkResponse превращает ответ WB в ошибку домена. Конверт с ошибкой может
// прийти и со статусом 200, поэтому тело проверяется всегда.
func checkResponse(statusCode int, body []byte) error {
	var env errEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		if len(env.Code) > 0 && env.Message != "" {
			return &APIError{Code: rawToString(env.Code), Message: env.Message}
		}
		if env.Error {
			msg := env.ErrorText
			if len(env.AdditionalErrors) > 0 && string(env.AdditionalErrors) != "null" {
				msg = fmt.Sprintf("%s: %s", msg, env.AdditionalErrors)
			}
			return &APIError{Message: msg}
		}
	}
	if statusCode < 200 || statusCode >= 300 {
		return &APIError{
			Code:    fmt.Sprintf("%d", statusCode),
			Message: http.StatusText(statusCode),
		}
	}
	return nil
}

// rawToString: code бывает и строкой, и числом.
func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// isTransient: сетевые сбои, которые лечатся повтором, — обрыв соединения,
// недочитанное chunked-тело. Ошибки контекста повторять бессмысленно.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
