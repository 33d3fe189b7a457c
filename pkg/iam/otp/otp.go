package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/kernel"
)

// CodeLength is the number of digits in an issued code.
const CodeLength = 6

type Purpose string

const (
	PurposeTwoFactor Purpose = "2fa"
	PurposeReset     Purpose = "reset"
)

func (p Purpose) IsValid() bool {
	return p == PurposeTwoFactor || p == PurposeReset
}

// OTP is a single-use code bound to a user and a purpose. Only the hash of
// the code is kept.
type OTP struct {
	ID        string        `json:"id"`
	UserID    kernel.UserID `json:"user_id"`
	Purpose   Purpose       `json:"purpose"`
	CodeHash  string        `json:"-"`
	ExpiresAt time.Time     `json:"expires_at"`
	Consumed  bool          `json:"consumed"`
	CreatedAt time.Time     `json:"created_at"`
}

func (o *OTP) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// IsActive reports whether the code can still be verified at now.
func (o *OTP) IsActive(now time.Time) bool {
	return !o.Consumed && !o.IsExpired(now)
}

// IssuedOTP returns the plaintext code once, for out-of-band delivery.
type IssuedOTP struct {
	Code string
	OTP  *OTP
}

// GenerateCode returns length uniformly random decimal digits.
func GenerateCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n.Int64()), nil
}
