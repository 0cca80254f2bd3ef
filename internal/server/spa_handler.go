package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// SPAMiddleware serves the dashboard from staticPath for every path the API
// does not own. Unknown paths fall back to index.html so client-side routes
// such as /scans/{id} load the app.
func SPAMiddleware(next http.Handler, staticPath string) http.Handler {
	indexPath := filepath.Join(staticPath, "index.html")
	files := http.FileServer(http.Dir(staticPath))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") ||
			r.URL.Path == "/healthz" ||
			r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if r.URL.Path == "/" {
			http.ServeFile(w, r, indexPath)
			return
		}

		path := filepath.Join(staticPath, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.ServeFile(w, r, indexPath)
			return
		}

		files.ServeHTTP(w, r)
	})
}
