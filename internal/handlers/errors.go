package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	goIAM "github.com/MrEthical07/goIAM"
)

var statusByCode = map[string]int{
	goIAM.CodeValidation:             http.StatusBadRequest,
	goIAM.CodePolicyViolation:        http.StatusBadRequest,
	goIAM.CodeSamePassword:           http.StatusBadRequest,
	goIAM.CodeCodeMissing:            http.StatusBadRequest,
	goIAM.CodeCodeExpired:            http.StatusBadRequest,
	goIAM.CodeCodeInvalid:            http.StatusBadRequest,
	goIAM.CodeCodeRequired:           http.StatusBadRequest,
	goIAM.CodeInvalidCredentials:     http.StatusUnauthorized,
	goIAM.CodeUnauthenticated:        http.StatusUnauthorized,
	goIAM.CodeInvalidToken:           http.StatusUnauthorized,
	goIAM.CodeCurrentPasswordInvalid: http.StatusUnauthorized,
	goIAM.CodeForbidden:              http.StatusForbidden,
	goIAM.CodePasswordChangeRequired: http.StatusForbidden,
	goIAM.CodeNotFound:               http.StatusNotFound,
	goIAM.CodeConflict:               http.StatusConflict,
	goIAM.CodeCodeLocked:             http.StatusTooManyRequests,
	goIAM.CodeRateLimited:            http.StatusTooManyRequests,
	goIAM.CodeDeliveryFailure:        http.StatusBadGateway,
}

var messageByCode = map[string]string{
	goIAM.CodeValidation:             "Datos inválidos",
	goIAM.CodePolicyViolation:        "La contraseña no cumple la política",
	goIAM.CodeSamePassword:           "La nueva contraseña debe ser distinta a la actual",
	goIAM.CodeCodeMissing:            "No hay un código de verificación activo",
	goIAM.CodeCodeExpired:            "El código de verificación expiró",
	goIAM.CodeCodeInvalid:            "Código de verificación incorrecto",
	goIAM.CodeCodeRequired:           "Se requiere un código de verificación válido",
	goIAM.CodeInvalidCredentials:     "Credenciales inválidas",
	goIAM.CodeUnauthenticated:        "No autenticado",
	goIAM.CodeInvalidToken:           "Token inválido",
	goIAM.CodeCurrentPasswordInvalid: "La contraseña actual es incorrecta",
	goIAM.CodeForbidden:              "Acceso denegado",
	goIAM.CodePasswordChangeRequired: "Debe cambiar su contraseña",
	goIAM.CodeNotFound:               "No encontrado",
	goIAM.CodeConflict:               "El recurso ya existe o fue modificado",
	goIAM.CodeCodeLocked:             "Demasiados intentos, código bloqueado",
	goIAM.CodeRateLimited:            "Demasiadas solicitudes, intente más tarde",
	goIAM.CodeDeliveryFailure:        "No se pudo enviar el correo",
	goIAM.CodeInternal:               "Error interno del servidor",
}

// StatusFor maps a machine code to its HTTP status. Unknown codes are 500.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError writes {ok:false, code, error} plus the fields carried by
// typed engine errors. Internal errors are logged and never echoed.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	code := goIAM.ErrorCode(err)
	status := StatusFor(code)

	body := gin.H{
		"ok":    false,
		"code":  code,
		"error": messageByCode[code],
	}
	if code == goIAM.CodeValidation {
		if detail := validationDetail(err); detail != "" {
			body["error"] = detail
		}
	}

	var policyErr *goIAM.PolicyError
	if errors.As(err, &policyErr) {
		body["rules"] = policyErr.Result.Rules
	}
	var codeErr *goIAM.CodeError
	if errors.As(err, &codeErr) {
		body["attemptsRemaining"] = codeErr.AttemptsRemaining
		if codeErr.LockedUntil != nil {
			body["lockedUntil"] = codeErr.LockedUntil.UTC()
		}
	}
	var changeErr *goIAM.ChangeRequiredError
	if errors.As(err, &changeErr) {
		body["reason"] = changeErr.Reason
	}

	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, body)
}

// badRequest reports a body or query that could not be decoded.
func (h HandlerSet) badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"ok":    false,
		"code":  goIAM.CodeValidation,
		"error": msg,
	})
}

// validationDetail strips the sentinel prefix so "validation error: email
// is required" is reported as "email is required".
func validationDetail(err error) string {
	msg := err.Error()
	prefix := goIAM.ErrValidation.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return ""
}
