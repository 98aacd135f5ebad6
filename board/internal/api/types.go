package api

// LoginRequest is the body of POST /api/v1/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse reports whether the account still uses its seeded default
// password. Clients should force a password change when this is true.
type LoginResponse struct {
	MustChangePassword bool `json:"must_change_password"`
}

// PasswordRequest is the body of POST /api/v1/password.
type PasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// TestResponse is the body of POST /api/v1/datasources/test.
type TestResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
