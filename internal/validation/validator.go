package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vencura/vencura/internal/chain"
	"github.com/vencura/vencura/internal/eth"
	apperrors "github.com/vencura/vencura/pkg/errors"
)

// EthereumAddressPattern is the regex pattern for Ethereum addresses
var EthereumAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

var aliasPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

const (
	MinAliasLength    = 3
	MaxAliasLength    = 20
	MinPasswordLength = 8
	MaxPasswordLength = 64
)

// ValidateEthereumAddress validates an Ethereum address format
func ValidateEthereumAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if !EthereumAddressPattern.MatchString(address) || !common.IsHexAddress(address) {
		return fmt.Errorf("invalid Ethereum address format: must be 0x followed by 40 hex characters")
	}

	return nil
}

// ValidateRecipient is ValidateEthereumAddress plus a zero address check
func ValidateRecipient(address string) error {
	if err := ValidateEthereumAddress(address); err != nil {
		return err
	}
	if strings.ToLower(address) == "0x0000000000000000000000000000000000000000" {
		return fmt.Errorf("cannot send to zero address")
	}
	return nil
}

// ValidateAlias accepts 3 to 20 ASCII letters and digits
func ValidateAlias(alias string) error {
	if len(alias) < MinAliasLength || len(alias) > MaxAliasLength {
		return fmt.Errorf("alias must be between %d and %d characters", MinAliasLength, MaxAliasLength)
	}
	if !aliasPattern.MatchString(alias) {
		return fmt.Errorf("alias must contain only letters and numbers")
	}
	return nil
}

// ValidatePassword checks the length in characters, not bytes
func ValidatePassword(password string) error {
	n := len([]rune(password))
	if n < MinPasswordLength || n > MaxPasswordLength {
		return fmt.Errorf("password must be between %d and %d characters", MinPasswordLength, MaxPasswordLength)
	}
	return nil
}

func ValidateChain(name string) error {
	if name == "" {
		return fmt.Errorf("chain is required")
	}
	if !chain.IsSupported(name) {
		return fmt.Errorf("chain must be one of: %s", strings.Join(chain.Names(), ", "))
	}
	return nil
}

// ValidateAmount accepts a non-negative decimal with at most 18 fractional digits
func ValidateAmount(amount string) error {
	if _, err := eth.ParseAmount(amount); err != nil {
		return err
	}
	return nil
}

// Amount decodes from either a JSON string or a JSON number and keeps the
// exact decimal text, so 0.1 is never routed through a float.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("amount must be a string or a number")
	}
	*a = Amount(n.String())
	return nil
}

func (a Amount) String() string {
	return string(a)
}

// Errors collects field failures so a request reports all of them at once
type Errors struct {
	issues []string
}

// Check records "field: reason" when err is non-nil
func (e *Errors) Check(field string, err error) {
	if err != nil {
		e.issues = append(e.issues, fmt.Sprintf("%s: %s", field, err.Error()))
	}
}

// Required records a failure when value is empty and reports whether it was present
func (e *Errors) Required(field, value string) bool {
	if value == "" {
		e.issues = append(e.issues, fmt.Sprintf("%s: is required", field))
		return false
	}
	return true
}

// Err returns a validation AppError, or nil when nothing failed
func (e *Errors) Err() error {
	if len(e.issues) == 0 {
		return nil
	}
	return apperrors.Validation(e.issues)
}
