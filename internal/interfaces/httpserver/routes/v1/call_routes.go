package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janhq/voicecall/internal/interfaces/httpserver/handlers"
	"github.com/janhq/voicecall/internal/interfaces/httpserver/responses"
	callres "github.com/janhq/voicecall/internal/interfaces/httpserver/responses/call"
)

// RegisterCallRoutes registers the voice call routes.
func RegisterCallRoutes(router gin.IRoutes, handler *handlers.CallHandler) {
	router.GET("/state", getState(handler))
	router.POST("/join", joinCall(handler))

	router.GET("/calls", listCalls(handler))
	router.GET("/calls/:id", getCall(handler))
}

// getState returns what the page should render.
func getState(handler *handlers.CallHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, callres.NewStateResponse(handler.State()))
	}
}

// joinCall fetches a token and starts a voice session with it. Clicks that
// arrive while a fetch is in flight share its result.
func joinCall(handler *handlers.CallHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := handler.Join(c.Request.Context())
		if err != nil {
			responses.HandleError(c, err, snap.Message)
			return
		}

		c.JSON(http.StatusOK, callres.NewStateResponse(snap))
	}
}

func listCalls(handler *handlers.CallHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		calls, err := handler.ListCalls(c.Request.Context())
		if err != nil {
			responses.HandleError(c, err, "failed to list calls")
			return
		}

		c.JSON(http.StatusOK, callres.NewListCallsResponse(calls))
	}
}

func getCall(handler *handlers.CallHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := handler.GetCall(c.Request.Context(), c.Param("id"))
		if err != nil {
			responses.HandleError(c, err, "call not found")
			return
		}

		c.JSON(http.StatusOK, callres.NewCallResponse(rec))
	}
}
