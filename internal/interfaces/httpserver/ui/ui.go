// Package ui serves the single-page voice call front end.
package ui

import (
	_ "embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janhq/voicecall/internal/domain/call"
)

const (
	Title          = "AI Agent Voice Demo"
	ConnectedTitle = "Talking to the AI agent..."
)

//go:embed page.html
var pageHTML string

var pageTmpl = template.Must(template.New("page").Parse(pageHTML))

type pageData struct {
	call.Snapshot
	Title          string
	ConnectedTitle string
}

// Handler renders the page for the current snapshot. The page polls
// /v1/state afterwards.
func Handler(state func() call.Snapshot) gin.HandlerFunc {
	return func(c *gin.Context) {
		data := pageData{
			Snapshot:       state(),
			Title:          Title,
			ConnectedTitle: ConnectedTitle,
		}
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Header("Cache-Control", "no-store")
		c.Status(http.StatusOK)
		if err := pageTmpl.Execute(c.Writer, data); err != nil {
			_ = c.Error(err)
		}
	}
}
