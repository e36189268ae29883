package core

import (
	"errors"
	"fmt"

	"budgetcore/pkg/domain"
)

// MinPasscodeLength is the shortest accepted UI passcode.
const MinPasscodeLength = 4

// UI passcode errors.
var (
	ErrWrongPasscode    = errors.New("current passcode is incorrect")
	ErrPasscodeMismatch = errors.New("new passcode and confirmation do not match")
	ErrPasscodeTooShort = fmt.Errorf("passcode must be at least %d characters", MinPasscodeLength)
)

// PasscodeGuard is the single global UI passcode protecting destructive
// actions. It is unrelated to agency reader passcodes and backend accounts.
type PasscodeGuard struct {
	cache domain.LocalCache
}

// NewPasscodeGuard stores the passcode under domain.KeyAppPasscode.
func NewPasscodeGuard(cache domain.LocalCache) *PasscodeGuard {
	return &PasscodeGuard{cache: cache}
}

func (g *PasscodeGuard) current() (string, error) {
	v, ok, err := g.cache.Get(domain.KeyAppPasscode)
	if err != nil {
		return "", fmt.Errorf("read passcode: %w", err)
	}
	if !ok || v == "" {
		return domain.DefaultAppPasscode, nil
	}
	return v, nil
}

// Verify reports whether input equals the stored passcode.
func (g *PasscodeGuard) Verify(input string) (bool, error) {
	cur, err := g.current()
	if err != nil {
		return false, err
	}
	return input == cur, nil
}

// Change replaces the passcode after checking the current one, the
// confirmation and the minimum length, in that order.
func (g *PasscodeGuard) Change(current, next, confirm string) error {
	ok, err := g.Verify(current)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWrongPasscode
	}
	if next != confirm {
		return ErrPasscodeMismatch
	}
	if len([]rune(next)) < MinPasscodeLength {
		return ErrPasscodeTooShort
	}
	if err := g.cache.Set(domain.KeyAppPasscode, next); err != nil {
		return fmt.Errorf("write passcode: %w", err)
	}
	return nil
}
