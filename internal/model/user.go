package model

// UserSession is the per-email authentication record. One row per identity,
// created on the first code issuance and never deleted; logout only clears
// the session fields. All instants are UTC epoch seconds.
type UserSession struct {
	Email string `json:"email"`
	// CodeHash is the bcrypt hash of the last-issued one-time code, or empty
	// once the code has been consumed.
	CodeHash      string `json:"-"`
	IssuedAt      int64  `json:"issued_at"`
	SessionExpiry *int64 `json:"session_expiry"`
	Authenticated bool   `json:"authenticated"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

// HasSession reports whether a session expiry is set (it may still be in the past).
func (u *UserSession) HasSession() bool {
	return u.SessionExpiry != nil
}
