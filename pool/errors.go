// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"errors"
	"fmt"
)

// The error taxonomy of the ledger. Every failure is fatal for the
// enclosing operation: the engine reverts all state written by the call,
// so no partial effect survives. There is no internal retry.

// ConfigError invalid parameter or zero address at setup.
type ConfigError struct {
	msg string
}

func configError(format string, args ...any) *ConfigError {
	return &ConfigError{fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string { return e.msg }

// IsConfigError checks whether err is a ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// AuthError a privileged operation invoked by a non-owner.
type AuthError struct {
	msg string
}

func authError(format string, args ...any) *AuthError {
	return &AuthError{fmt.Sprintf(format, args...)}
}

func (e *AuthError) Error() string { return e.msg }

// IsAuthError checks whether err is an AuthError.
func IsAuthError(err error) bool {
	var e *AuthError
	return errors.As(err, &e)
}

// CapacityError a deposit exceeding the pool's stake cap.
type CapacityError struct {
	msg string
}

func capacityError(format string, args ...any) *CapacityError {
	return &CapacityError{fmt.Sprintf(format, args...)}
}

func (e *CapacityError) Error() string { return e.msg }

// IsCapacityError checks whether err is a CapacityError.
func IsCapacityError(err error) bool {
	var e *CapacityError
	return errors.As(err, &e)
}

// FundsError a token balance or allowance shortfall during accrual or payout.
type FundsError struct {
	msg   string
	cause error
}

func fundsError(cause error, format string, args ...any) *FundsError {
	return &FundsError{msg: fmt.Sprintf(format, args...), cause: cause}
}

func (e *FundsError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *FundsError) Unwrap() error { return e.cause }

// IsFundsError checks whether err is a FundsError.
func IsFundsError(err error) bool {
	var e *FundsError
	return errors.As(err, &e)
}

// EligibilityError a migration rejected by the rank ordering rules.
type EligibilityError struct {
	msg string
}

func eligibilityError(format string, args ...any) *EligibilityError {
	return &EligibilityError{fmt.Sprintf(format, args...)}
}

func (e *EligibilityError) Error() string { return e.msg }

// IsEligibilityError checks whether err is an EligibilityError.
func IsEligibilityError(err error) bool {
	var e *EligibilityError
	return errors.As(err, &e)
}
