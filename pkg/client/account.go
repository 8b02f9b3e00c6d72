package client

// Account is one tenant's API identity. It is immutable once loaded.
type Account struct {
	// Name is the API username and the account's display identity.
	Name string

	// Secret is the API key paired with Name.
	Secret string
}

// AuthHeader returns the basic-auth header value for the account.
func (a Account) AuthHeader() string {
	return BasicAuth(a.Name, a.Secret)
}

// String returns the account name; the secret is never rendered.
func (a Account) String() string {
	return a.Name
}
