package todostore

import (
	"net/http"
	"strings"

	"github.com/Makepad-fr/tada/internal/api"
)

const (
	msgUnknown      = "Error desconocido"
	msgUnauthorized = "No autorizado (401). Inicia sesión nuevamente."
	msgForbidden    = "Acceso prohibido (403)."
	msgServer       = "Error del servidor. Intenta nuevamente."
	msgGeneric      = "Ocurrió un error al procesar la solicitud."
)

// NormalizeError turns any failure into a message fit for the error banner.
func NormalizeError(err error) string {
	if err == nil {
		return msgUnknown
	}
	switch status := api.StatusOf(err); {
	case status == http.StatusUnauthorized:
		return msgUnauthorized
	case status == http.StatusForbidden:
		return msgForbidden
	case status >= http.StatusInternalServerError:
		return msgServer
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return msgGeneric
}
