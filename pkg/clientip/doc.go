// Package clientip resolves the client IP address of HTTP requests.
//
// A Resolver trusts only the proxy headers it is configured with; without any
// it uses the connection's remote address. Resolver.Middleware stores the
// result in the request context where FromContext and FromRequest read it.
// The stream endpoint uses FromRequest as its rate limit key.
//
//	res := clientip.NewResolver("X-Forwarded-For")
//	router.Use(res.Middleware)
package clientip
