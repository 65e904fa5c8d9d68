// Package routing generates links to the public site. Links rendered from a
// scheduled command have no incoming request to infer the host from, so the
// caller sets the request context explicitly.
package routing

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	ErrRouteNotFound    = errors.New("route not found")
	ErrMissingParameter = errors.New("missing route parameter")
)

// Route names known to the site.
const (
	RouteHome    = "job_index"
	RouteJobShow = "job_show"
	RouteJobPost = "job_post"
	RouteFeed    = "job_feed"
)

// DefaultRoutes returns the site routes the letter links to.
func DefaultRoutes() map[string]string {
	return map[string]string{
		RouteHome:    "/",
		RouteJobShow: "/job/{id}",
		RouteJobPost: "/job/new",
		RouteFeed:    "/rss.xml",
	}
}

// Context is the request information links are generated against.
type Context struct {
	Host     string
	Scheme   string
	BasePath string
}

var placeholder = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Router turns route names and parameters into URLs.
type Router struct {
	mu     sync.RWMutex
	routes map[string]string
	ctx    Context
}

// NewRouter creates a router over the given name → path pattern table.
func NewRouter(routes map[string]string) *Router {
	r := &Router{routes: make(map[string]string, len(routes)), ctx: Context{Host: "localhost", Scheme: "http"}}
	for name, path := range routes {
		r.routes[name] = path
	}
	return r
}

// Context returns the current request context.
func (r *Router) Context() Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ctx
}

// SetContext replaces the request context.
func (r *Router) SetContext(c Context) {
	r.mu.Lock()
	r.ctx = c
	r.mu.Unlock()
}

// SetHost sets the host of the request context.
func (r *Router) SetHost(host string) {
	r.mu.Lock()
	r.ctx.Host = host
	r.mu.Unlock()
}

// SetScheme sets the scheme of the request context.
func (r *Router) SetScheme(scheme string) {
	r.mu.Lock()
	r.ctx.Scheme = scheme
	r.mu.Unlock()
}

// Path generates the relative path of a route. Parameters that are not
// placeholders in the pattern end up in the query string.
func (r *Router) Path(name string, params map[string]string) (string, error) {
	r.mu.RLock()
	pattern, ok := r.routes[name]
	base := r.ctx.BasePath
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRouteNotFound, name)
	}

	used := make(map[string]bool)
	var missing []string
	path := placeholder.ReplaceAllStringFunc(pattern, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := params[key]
		if !ok || v == "" {
			missing = append(missing, key)
			return m
		}
		used[key] = true
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s requires %s", ErrMissingParameter, name, strings.Join(missing, ", "))
	}

	query := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !used[k] {
			query.Set(k, params[k])
		}
	}

	path = strings.TrimRight(base, "/") + path
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path, nil
}

// URL generates an absolute URL using the request context.
func (r *Router) URL(name string, params map[string]string) (string, error) {
	path, err := r.Path(name, params)
	if err != nil {
		return "", err
	}
	c := r.Context()
	u := url.URL{Scheme: c.Scheme, Host: c.Host}
	return u.String() + path, nil
}
