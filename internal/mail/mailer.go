package mail

// Mailer delivers account emails. Implementations report delivery failure to
// the caller; whether that failure is surfaced to end users is the caller's
// decision (the identity service swallows it).
type Mailer interface {
	SendPasswordResetEmail(email, resetLink string) error
}
