package domain

// Claims is the verified identity attached to a request. Signature
// verification happens against the published JWKS; by the time a handler
// sees Claims the token is already validated and unexpired.
type Claims struct {
	UserID   string
	Role     int
	Email    string
	Username string
}
