// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Category sentinels. Callers branch on these with errors.Is rather than
// inspecting raw provider codes.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrRateLimited    = errors.New("rate limited")
	ErrTransient      = errors.New("transient failure")
	ErrValidation     = errors.New("input validation failed")
	ErrDataIntegrity  = errors.New("chain data unusable")
	ErrUpstream       = errors.New("upstream provider error")
)

// ProviderError represents an error response from the market-data provider.
// The raw provider code is preserved for diagnostics; Category links the
// error into the sentinel taxonomy via Unwrap.
type ProviderError struct {
	Code     string
	Message  string
	Category error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error [%s]: %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Category
}

// providerMessages is the provider's published error code table.
var providerMessages = map[string]string{
	"AG8001": "Invalid Token",
	"AG8002": "Token Expired",
	"AG8003": "Token missing",
	"AB8050": "Invalid Refresh Token",
	"AB8051": "Refresh Token Expired",
	"AB1000": "Invalid Email Or Password",
	"AB1001": "Invalid Email",
	"AB1002": "Invalid Password Length",
	"AB1003": "Client Already Exists",
	"AB1004": "Something Went Wrong, Please Try After Sometime",
	"AB1005": "User Type Must Be USER",
	"AB1006": "Client Is Block For Trading",
	"AB1007": "AMX Error",
	"AB1008": "Invalid Order Variety",
	"AB1009": "Symbol Not Found",
	"AB1010": "AMX Session Expired",
	"AB1011": "Client not login",
	"AB1012": "Invalid Product Type",
	"AB1013": "Order not found",
	"AB1014": "Trade not found",
	"AB1015": "Holding not found",
	"AB1016": "Position not found",
	"AB1017": "Position conversion failed",
	"AB1018": "Failed to get symbol details",
	"AB2000": "Error not specified",
	"AB2001": "Internal Error, Please try after sometime",
	"AB1031": "Old Password Mismatch",
	"AB1032": "User Not Found",
	"AB2002": "ROBO order is block",
	"AB4008": "ordertag length should be less than 20 characters",
}

// providerCategories maps provider codes onto the sentinel taxonomy.
// Codes absent from this table fall back to ErrUpstream.
var providerCategories = map[string]error{
	// Token and credential failures: a fresh login is required.
	"AG8001": ErrAuthentication,
	"AG8002": ErrAuthentication,
	"AG8003": ErrAuthentication,
	"AB8050": ErrAuthentication,
	"AB8051": ErrAuthentication,
	"AB1000": ErrAuthentication,
	"AB1001": ErrAuthentication,
	"AB1002": ErrAuthentication,
	"AB1006": ErrAuthentication,
	"AB1010": ErrAuthentication,
	"AB1011": ErrAuthentication,
	"AB1031": ErrAuthentication,
	"AB1032": ErrAuthentication,

	// Malformed request parameters: never retried.
	"AB1005": ErrValidation,
	"AB1008": ErrValidation,
	"AB1009": ErrValidation,
	"AB1012": ErrValidation,
	"AB1018": ErrValidation,
	"AB4008": ErrValidation,

	// Provider-side hiccups worth a bounded retry.
	"AB1004": ErrTransient,
	"AB2001": ErrTransient,
}

// NewProviderError builds a ProviderError for a raw provider code. When the
// provider omits a message the published table supplies one.
func NewProviderError(code, message string) *ProviderError {
	if message == "" {
		if m, ok := providerMessages[code]; ok {
			message = m
		} else {
			message = "Unknown error"
		}
	}
	category, ok := providerCategories[code]
	if !ok {
		category = ErrUpstream
	}
	return &ProviderError{Code: code, Message: message, Category: category}
}

// IsAuthCode reports whether a provider code belongs to the
// authentication category without constructing an error.
func IsAuthCode(code string) bool {
	return providerCategories[code] == ErrAuthentication
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
