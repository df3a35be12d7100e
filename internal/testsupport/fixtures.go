package testsupport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// Fixture is a canned HTTP response.
type Fixture struct {
	Status      int
	ContentType string
	Body        string
}

// FixtureServer serves canned responses keyed by request path and counts hits.
type FixtureServer struct {
	*httptest.Server
	hits atomic.Int64
}

// Hits reports how many requests reached the server.
func (s *FixtureServer) Hits() int64 {
	return s.hits.Load()
}

// NewFixtureServer starts a server that answers each path from routes. Unknown
// paths get a 404. The server is closed when the test ends.
func NewFixtureServer(t testing.TB, routes map[string]Fixture) *FixtureServer {
	t.Helper()

	fs := &FixtureServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.hits.Add(1)
		fixture, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		contentType := fixture.ContentType
		if contentType == "" {
			contentType = "text/html; charset=utf-8"
			if strings.HasPrefix(strings.TrimSpace(fixture.Body), "{") {
				contentType = "application/json"
			}
		}
		w.Header().Set("Content-Type", contentType)
		status := fixture.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(fixture.Body))
	}))
	t.Cleanup(fs.Close)
	return fs
}
