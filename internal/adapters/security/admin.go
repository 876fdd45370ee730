package security

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

// BcryptAdminVerifier checks the shared admin override code against a bcrypt
// hash. The hash comes from configuration; the plaintext code is never
// stored.
type BcryptAdminVerifier struct {
	hash string
}

func NewBcryptAdminVerifier(hash string) *BcryptAdminVerifier {
	return &BcryptAdminVerifier{hash: strings.TrimSpace(hash)}
}

func (v *BcryptAdminVerifier) Verify(code string) error {
	if v.hash == "" || strings.TrimSpace(code) == "" {
		return domain.ErrForbidden
	}
	if err := bcrypt.CompareHashAndPassword([]byte(v.hash), []byte(code)); err != nil {
		return domain.ErrForbidden
	}
	return nil
}

// StaticAdminVerifier compares against a plaintext code. Local development
// only, when no hash is configured.
type StaticAdminVerifier struct {
	code string
}

func NewStaticAdminVerifier(code string) *StaticAdminVerifier {
	return &StaticAdminVerifier{code: strings.TrimSpace(code)}
}

func (v *StaticAdminVerifier) Verify(code string) error {
	if v.code == "" {
		return domain.ErrForbidden
	}
	if subtle.ConstantTimeCompare([]byte(v.code), []byte(strings.TrimSpace(code))) != 1 {
		return domain.ErrForbidden
	}
	return nil
}
