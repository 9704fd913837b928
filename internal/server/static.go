package server

import (
	"net/http"
	"path"
	"strings"

	"hivley/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
)

// staticFallback serves the web bundle for any path the API does not
// own. Unknown paths get index.html so client-side routing works.
func staticFallback(root string) gin.HandlerFunc {
	files := handlers.CompressHandler(spaHandler{root: http.Dir(root)})
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/v1/") || p == "/v1" {
			c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("route not found", "NOT_FOUND"))
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusMethodNotAllowed, httpdto.NewErrorResponse("method not allowed", "INVALID_REQUEST"))
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}

type spaHandler struct {
	root http.FileSystem
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if h.serve(w, r, name) {
		return
	}
	if !h.serve(w, r, "/index.html") {
		http.NotFound(w, r)
	}
}

func (h spaHandler) serve(w http.ResponseWriter, r *http.Request, name string) bool {
	f, err := h.root.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}
