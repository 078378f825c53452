package server

import (
	"net/http"
	"path"
	"strings"

	"github.com/tjfontaine/fullstack-app-server/internal/domain"
)

// Static serves read-only files from dir, matched by URL path. A directory
// is served only when it holds the index file. Dot files, missing files and
// methods other than GET and HEAD fall through to next.
func Static(dir, index string) func(http.Handler) http.Handler {
	root := http.Dir(dir)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isReadMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			name := path.Clean("/" + r.URL.Path)
			if hasDotSegment(name) {
				next.ServeHTTP(w, r)
				return
			}

			f, err := root.Open(name)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if !info.IsDir() {
				http.ServeContent(w, r, info.Name(), info.ModTime(), f)
				return
			}

			idx, err := root.Open(path.Join(name, index))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			defer idx.Close()

			idxInfo, err := idx.Stat()
			if err != nil || idxInfo.IsDir() {
				next.ServeHTTP(w, r)
				return
			}

			if !strings.HasSuffix(r.URL.Path, "/") {
				u := *r.URL
				u.Path += "/"
				http.Redirect(w, r, u.String(), http.StatusMovedPermanently)
				return
			}

			http.ServeContent(w, r, idxInfo.Name(), idxInfo.ModTime(), idx)
		})
	}
}

// SPAFallback answers every GET or HEAD that reached it with the client
// entry document, letting the client-side router take over. If the entry
// document cannot be read a not-found error is forwarded.
func SPAFallback(dir, index string) func(http.Handler) http.Handler {
	root := http.Dir(dir)
	entry := "/" + index

	return func(next http.Handler) http.Handler {
		return HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
			if !isReadMethod(r.Method) {
				next.ServeHTTP(w, r)
				return nil
			}

			f, err := root.Open(entry)
			if err != nil {
				return domain.ErrNotFound(index + " not found").WithCause(err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return domain.ErrNotFound(index + " not found").WithCause(err)
			}
			if info.IsDir() {
				return domain.ErrNotFound(index + " is a directory")
			}

			http.ServeContent(w, r, info.Name(), info.ModTime(), f)
			return nil
		})
	}
}

func isReadMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func hasDotSegment(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
