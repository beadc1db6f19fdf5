package api

import "net/http"

// routeBinding is one row of the static route table. It drives both the
// mux registration and the generated API document.
type routeBinding struct {
	method    string
	path      string
	aliases   []string
	operation string
	summary   string
	params    []paramDoc
	body      *bodyDoc
	responses []responseDoc
	// handler is served through the JSON response wrapper.
	handler resultFunc
	// raw is mounted as-is, for responses that are not JSON values.
	raw http.HandlerFunc
}

type paramDoc struct {
	name        string
	in          string
	description string
	schemaType  string
	required    bool
}

type bodyDoc struct {
	description  string
	schema       string
	contentTypes []string
	optional     bool
}

type responseDoc struct {
	status      int
	description string
	schema      string
}

func (h *Handler) registerRoutes(mux *http.ServeMux, routes []routeBinding) {
	for _, route := range routes {
		var handler http.HandlerFunc
		switch {
		case route.handler != nil:
			handler = h.wrap(route.operation, route.handler)
		case route.raw != nil:
			handler = h.observe(route.operation, route.raw)
		default:
			continue
		}
		for _, path := range append([]string{route.path}, route.aliases...) {
			mux.HandleFunc(route.method+" "+path, handler)
		}
		h.routes = append(h.routes, route)
	}
}
