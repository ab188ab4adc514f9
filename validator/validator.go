package validator

import (
	"math"
	"regexp"

	"affiliate/errors"
)

var (
	walletAddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	referralCodeRegex  = regexp.MustCompile(`^[A-Za-z0-9]{8,20}$`)
)

// ValidateWalletAddress checks the 42-char 0x hex format. Case is accepted
// here; callers normalize to lowercase before persisting.
func ValidateWalletAddress(address string) error {
	if address == "" {
		return errors.NewAppError(errors.ErrCodeInvalidAddress, "wallet address is required", nil)
	}
	if !walletAddressRegex.MatchString(address) {
		return errors.NewAppError(errors.ErrCodeInvalidAddress, "invalid wallet address: "+address, nil)
	}
	return nil
}

// ValidateReferralCode checks the 8-20 alphanumeric code format.
func ValidateReferralCode(code string) error {
	if code == "" {
		return errors.NewAppError(errors.ErrCodeInvalidCode, "referral code is required", nil)
	}
	if !referralCodeRegex.MatchString(code) {
		return errors.NewAppError(errors.ErrCodeInvalidCode, "invalid referral code: "+code, nil)
	}
	return nil
}

// ValidateVolume checks that a USD volume is finite and non-negative.
func ValidateVolume(usd float64) error {
	if math.IsNaN(usd) || math.IsInf(usd, 0) {
		return errors.NewAppError(errors.ErrCodeInvalidAmount, "volume must be a finite number", nil)
	}
	if usd < 0 {
		return errors.NewAppError(errors.ErrCodeInvalidAmount, "volume must not be negative", nil)
	}
	return nil
}
