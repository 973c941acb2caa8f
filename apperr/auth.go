package apperr

import (
	"fmt"
	"net/http"
)

// Identity provider error codes.
const (
	CodeEmailInUse      = "auth/email-already-in-use"
	CodeInvalidEmail    = "auth/invalid-email"
	CodeWeakPassword    = "auth/weak-password"
	CodeUserNotFound    = "auth/user-not-found"
	CodeWrongPassword   = "auth/wrong-password"
	CodeTooManyRequests = "auth/too-many-requests"
	CodeInvalidSession  = "auth/invalid-session"
)

var authMessages = map[string]string{
	CodeEmailInUse:      "Este e-mail já está cadastrado.",
	CodeInvalidEmail:    "E-mail inválido.",
	CodeWeakPassword:    "A senha é muito fraca.",
	CodeUserNotFound:    "Usuário não encontrado.",
	CodeWrongPassword:   "Senha incorreta.",
	CodeTooManyRequests: "Muitas tentativas. Tente novamente mais tarde.",
	CodeInvalidSession:  "Sessão expirada. Faça login novamente.",
}

const genericAuthMessage = "Erro ao processar a solicitação. Tente novamente."

// AuthMessage maps an identity error code to the message shown to users.
// Unknown codes get a generic message.
func AuthMessage(code string) string {
	if msg, ok := authMessages[code]; ok {
		return msg
	}
	return genericAuthMessage
}

// AuthError is an identity failure carrying a machine-readable code.
type AuthError struct {
	Code string
	Err  error
}

// Auth builds an AuthError for code.
func Auth(code string) *AuthError {
	return &AuthError{Code: code}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *AuthError) Unwrap() error { return e.Err }

// Message is the user-facing text for the error code.
func (e *AuthError) Message() string { return AuthMessage(e.Code) }

// Status maps the code to an HTTP status.
func (e *AuthError) Status() int {
	switch e.Code {
	case CodeEmailInUse:
		return http.StatusConflict
	case CodeInvalidEmail, CodeWeakPassword:
		return http.StatusBadRequest
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusUnauthorized
	}
}
