package handler

import (
	_ "embed"
	"net/http"
)

//go:embed web/index.html
var indexPage []byte

// Index serves the single page inventory UI
func Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexPage)
}
