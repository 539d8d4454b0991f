// Package responses contains HTTP response helpers for the voicecall API.
// Call-specific response types are in the call subpackage.
package responses

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/janhq/voicecall/internal/infrastructure/store"
	"github.com/janhq/voicecall/internal/utils/platformerrors"
)

// HandleError maps store and domain errors to HTTP responses.
func HandleError(c *gin.Context, err error, message string) {
	logger := log.With().Str("path", c.Request.URL.Path).Logger()

	if errors.Is(err, store.ErrCallNotFound) {
		platformerrors.WriteNotFound(c, message)
		return
	}

	platformerrors.WriteError(c, platformerrors.AsError(c.Request.Context(), platformerrors.LayerHandler, err, message), logger)
}
