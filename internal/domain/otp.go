package domain

import "time"

// OTP is a one-time passcode mailed to confirm control of an email address
type OTP struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Code      string    `db:"code"`
	ExpiresAt time.Time `db:"expires_at"`
	IsUsed    bool      `db:"is_used"`
	CreatedAt time.Time `db:"created_at"`
}

func (o OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
