package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Range of years covered by the shipped database.
const (
	MinYear = 2013
	MaxYear = 2018
)

// Substances lists the canonical substance names stored in the database.
var Substances = []string{
	"Alcohol",
	"Benzodiazepine",
	"Cocaine",
	"Fentanyl",
	"Heroin",
	"Methadone",
	"Methamphetamine",
	"Opioid",
	"Oxycodone",
	"Prescription Opioid",
}

// ValidationError reports a rejected CLI argument.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// CheckYear parses s and verifies it lies in [MinYear, MaxYear].
func CheckYear(s string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &ValidationError{Field: "year", Value: s, Reason: "not an integer"}
	}
	if year < MinYear || year > MaxYear {
		return 0, &ValidationError{
			Field:  "year",
			Value:  s,
			Reason: fmt.Sprintf("must be between %d and %d", MinYear, MaxYear),
		}
	}
	return year, nil
}

// CheckSubstance matches s case-insensitively against Substances and
// returns the canonical spelling.
func CheckSubstance(s string) (string, error) {
	needle := strings.Join(strings.Fields(s), " ")
	for _, name := range Substances {
		if strings.EqualFold(name, needle) {
			return name, nil
		}
	}
	return "", &ValidationError{
		Field:  "substance",
		Value:  s,
		Reason: "must be one of " + strings.Join(Substances, ", "),
	}
}

// NewMapRequest validates both arguments and builds a MapRequest.
func NewMapRequest(year, substance string) (MapRequest, error) {
	y, err := CheckYear(year)
	if err != nil {
		return MapRequest{}, err
	}
	name, err := CheckSubstance(substance)
	if err != nil {
		return MapRequest{}, err
	}
	return MapRequest{Year: y, Substance: name}, nil
}
