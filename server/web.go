package server

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

// indexPage is the landing page served at the root path. The real
// front-end lives under /static; this page bootstraps it.
const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>Gomoku</title>
    <link rel="stylesheet" href="/static/css/style.css">
</head>
<body>
    <div id="app" data-socket-url="{{.SocketPath}}"></div>
    <script src="/static/js/app.js"></script>
</body>
</html>
`

var indexTemplate = template.Must(template.New("index").Parse(indexPage))

func (s *Server) handleIndex(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	err := indexTemplate.Execute(c.Writer, map[string]string{
		"SocketPath": "/socket",
	})
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}
