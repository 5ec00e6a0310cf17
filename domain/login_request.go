package domain

// LoginRequest is the tagged union accepted by the session controller's
// Login entry point. Callers dispatch explicitly on the branch they mean;
// there is no runtime inspection of argument shapes.
type LoginRequest interface {
	loginRequest()
}

// Credentials is the email/password branch.
type Credentials struct {
	Email    string
	Password string
}

// Identity is the pre-authenticated branch used by the OAuth redirect
// resolver: the user has already been vouched for by an external provider
// and normalized into the application shape. Token is the provider-issued
// bearer; it is persisted alongside the user so the stored pair stays whole.
type Identity struct {
	User  *User
	Token string
}

// SignOut requests an explicit sign-out. No network call is made; store and
// in-memory state are cleared immediately.
type SignOut struct{}

func (Credentials) loginRequest() {}
func (Identity) loginRequest()    {}
func (SignOut) loginRequest()     {}

// SignupRequest represents registration input
type SignupRequest struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
}

// Validate checks the request before it reaches the network.
func (r SignupRequest) Validate() error {
	if r.Name == "" || r.Email == "" || r.Password == "" {
		return ErrValidation
	}
	if r.Password != r.PasswordConfirm {
		return ErrValidation
	}
	return nil
}
