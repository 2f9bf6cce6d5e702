package service

import "errors"

// Flow specific errors used by handlers for stable error_type mapping.
var (
	// ErrInvalidCredentials covers both unknown email and wrong password;
	// callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrOTPRateLimited is returned once the attempt budget is exhausted.
	// Only a fresh issue resets it.
	ErrOTPRateLimited = errors.New("otp_rate_limited")

	// ErrOTPInvalidOrExpired covers wrong, expired and already-consumed codes.
	ErrOTPInvalidOrExpired = errors.New("otp_invalid_or_expired")

	// ErrDelivery is returned when every configured mail transport failed.
	ErrDelivery = errors.New("otp_delivery_failed")

	// ErrGateway is returned when the payment gateway is unreachable or
	// rejects a request outright.
	ErrGateway = errors.New("payment_gateway_error")

	// ErrPaymentNotSuccessful is returned when the gateway reports the
	// transaction as anything other than successful.
	ErrPaymentNotSuccessful = errors.New("payment_not_successful")
)
