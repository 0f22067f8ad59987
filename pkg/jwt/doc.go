// Package jwt verifies and issues HS256 access tokens using
// github.com/golang-jwt/jwt/v5.
//
// Tokens carry the numeric user id as subject and an optional role claim:
//
//	svc, _ := jwt.NewFromString(secret, jwt.WithIssuer("forum"))
//	token, _ := svc.Issue(42, "admin", time.Hour)
//	claims, err := svc.Parse(token)
//
// MiddlewareWithConfig verifies the token found by an extractor and stores
// the claims in the request context (GetClaims). Every extractor feeds the
// same Parse call, so a token passed as a query parameter is verified exactly
// like a bearer header:
//
//	r.Use(jwt.MiddlewareWithConfig(jwt.MiddlewareConfig{
//		Service:   svc,
//		Extractor: jwt.FirstOf(jwt.BearerTokenExtractor, jwt.QueryTokenExtractor("token")),
//	}))
package jwt
