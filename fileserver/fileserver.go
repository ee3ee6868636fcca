// Package fileserver serves a directory over HTTP with permissive CORS, for
// web maps loading local GeoJSON and rasters.
package fileserver

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const DefaultAddr = ":8080"

var mimeTypes = map[string]string{
	".html":    "text/html",
	".js":      "text/javascript",
	".css":     "text/css",
	".json":    "application/json",
	".geojson": "application/geo+json",
	".png":     "image/png",
	".jpg":     "image/jpeg",
	".jpeg":    "image/jpeg",
	".gif":     "image/gif",
}

// ContentType returns the MIME type served for name.
func ContentType(name string) string {
	if t, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return "application/octet-stream"
}

// NewRouter returns a handler serving the files below root.
func NewRouter(root string) http.Handler {
	// Cleaning happens in fileHandler so that dot segments answer 404
	// instead of a redirect.
	r := mux.NewRouter().SkipClean(true)
	r.Use(cors)
	r.PathPrefix("/").Methods(http.MethodGet, http.MethodHead).HandlerFunc(fileHandler(root))
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(notFound)
	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("404 Not Found"))
}

func fileHandler(root string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// path.Clean on a rooted path never climbs above "/".
		rel := path.Clean("/" + r.URL.Path)
		name := filepath.Join(root, filepath.FromSlash(rel))
		data, err := os.ReadFile(name)
		if err != nil {
			logrus.Debugf("%s %s: %v", r.Method, r.URL.Path, err)
			notFound(w, r)
			return
		}
		w.Header().Set("Content-Type", ContentType(name))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			w.Write(data)
		}
	}
}

// ListenAndServe serves root on addr until the server fails.
func ListenAndServe(addr, root string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(root),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logrus.Infof("serving %s with CORS at http://localhost%s", root, addr)
	return srv.ListenAndServe()
}
