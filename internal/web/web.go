// Package web serves the embedded browser client.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var content embed.FS

// Files returns the client assets rooted at the static directory.
func Files() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		// static is embedded at build time
		panic(err)
	}
	return sub
}

// Handler serves index.html at / and the remaining assets by name.
func Handler() http.Handler {
	files := http.FileServerFS(Files())
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	})
}
