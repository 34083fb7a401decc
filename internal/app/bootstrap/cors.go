// internal/app/bootstrap/cors.go
package bootstrap

import (
	"net/http"
	"regexp"

	"github.com/go-chi/cors"
)

// Browsers on the local network may call the API without being listed.
var privateOrigin = []*regexp.Regexp{
	regexp.MustCompile(`^https?://10\.(?:\d{1,3}\.){2}\d{1,3}(?::\d+)?$`),
	regexp.MustCompile(`^https?://192\.168\.\d{1,3}\.\d{1,3}(?::\d+)?$`),
	regexp.MustCompile(`^https?://172\.(?:1[6-9]|2[0-9]|3[0-1])\.\d{1,3}\.\d{1,3}(?::\d+)?$`),
}

// originAllowed reports whether a browser origin may call the API.
func originAllowed(allow []string, origin string) bool {
	for _, o := range allow {
		if o == origin {
			return true
		}
	}
	for _, rx := range privateOrigin {
		if rx.MatchString(origin) {
			return true
		}
	}
	return false
}

func corsMiddleware(allow []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return originAllowed(allow, origin)
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
