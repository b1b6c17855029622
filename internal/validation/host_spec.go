package validation

import (
	"strings"

	"github.com/narvanalabs/zapper/internal/models"
)

// Messages shown by the host form for an invalid host field.
const (
	MsgHostRequired = "Please set a name such as localhost or localhost:8090"
	MsgHostFormat   = "Acceptable format include localhost or localhost:8090"
)

// ValidateHostSpec checks the host form field.
// An empty value and a value with more than one colon are rejected.
func ValidateHostSpec(value string) error {
	if len(value) == 0 {
		return &models.ValidationError{Field: "host", Message: MsgHostRequired}
	}
	if strings.Count(value, ":") > 1 {
		return &models.ValidationError{Field: "host", Message: MsgHostFormat}
	}
	return nil
}

// ValidateHostTarget applies ValidateHostSpec and then parses the value,
// rejecting an empty host name or a non-numeric port.
func ValidateHostTarget(value string) (models.HostTarget, error) {
	if err := ValidateHostSpec(value); err != nil {
		return models.HostTarget{}, err
	}
	return models.ParseHostTarget(value)
}
