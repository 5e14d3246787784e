// Package jwt issues and verifies HS256 JSON Web Tokens on top of
// github.com/golang-jwt/jwt/v5 and carries the verified claims through the
// request context.
//
// Claims are a plain map. Downstream middleware may append claims with
// Claims.AddIfAbsent; an existing value is never replaced.
//
//	svc, err := jwt.NewFromString(os.Getenv("JWT_SECRET"))
//	token, err := svc.Generate(jwt.NewClaims(userID.String(), 24*time.Hour))
//
//	r.Use(jwt.OptionalMiddleware(svc))
//	r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
//	    claims, _ := jwt.ClaimsFromContext(r.Context())
//	    ...
//	})
package jwt
