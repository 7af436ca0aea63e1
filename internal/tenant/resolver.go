package tenant

import (
	"net"
	"net/http"
	"regexp"
	"strings"
)

// DefaultHeader carries the studio identifier when no subdomain is used.
const DefaultHeader = "X-Studio-ID"

var studioPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

// Resolver resolves studio identifiers from the configured header, then the
// subdomain under RootDomain, then DefaultStudio.
type Resolver struct {
	HeaderName    string
	RootDomain    string
	DefaultStudio string
}

// NewResolver returns a resolver. An empty headerName selects DefaultHeader.
func NewResolver(headerName, rootDomain, defaultStudio string) *Resolver {
	if headerName == "" {
		headerName = DefaultHeader
	}
	return &Resolver{
		HeaderName:    headerName,
		RootDomain:    strings.ToLower(strings.TrimSpace(rootDomain)),
		DefaultStudio: Normalize(defaultStudio),
	}
}

// Normalize lowercases id and returns "" when it is not a valid studio slug.
func Normalize(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if !studioPattern.MatchString(id) {
		return ""
	}
	return id
}

// Middleware injects the resolved studio into the request context.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		studioID := r.Resolve(req)
		if studioID == "" {
			studioID = r.DefaultStudio
		}
		if studioID != "" {
			req = req.WithContext(WithStudio(req.Context(), studioID))
		}
		next.ServeHTTP(w, req)
	})
}

// Resolve returns the studio named by the request, or "" when none is valid.
func (r *Resolver) Resolve(req *http.Request) string {
	if r == nil || req == nil {
		return ""
	}
	if id := Normalize(req.Header.Get(r.HeaderName)); id != "" {
		return id
	}
	host := hostWithoutPort(req.Host)
	if host == "" {
		return ""
	}
	return Normalize(r.subdomainFromHost(host))
}

func (r *Resolver) subdomainFromHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}
	if r.RootDomain != "" {
		suffix := "." + r.RootDomain
		if !strings.HasSuffix(host, suffix) {
			return ""
		}
		host = strings.TrimSuffix(host, suffix)
	} else if strings.Count(host, ".") < 2 {
		return ""
	}
	return strings.Split(host, ".")[0]
}

func hostWithoutPort(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return strings.Trim(hostport, "[]")
}
