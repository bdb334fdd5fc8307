package naming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidName is returned for names that break the naming convention.
var ErrInvalidName = errors.New("invalid name")

// A Name is a hierarchical name that includes a series of tokens separated
// by dots.
type Name struct {
	Tokens []NameToken
}

// NameToken is a token of a name.
type NameToken struct {
	ElemName string
	Index    []int
}

// ParseName parses a name such as "Hospital.Ward[0]". It does not check the
// capitalization rules; use Validate for that.
func ParseName(name string) (Name, error) {
	tokens := strings.Split(name, ".")
	n := Name{Tokens: make([]NameToken, len(tokens))}

	for i, token := range tokens {
		t, err := parseNameToken(token)
		if err != nil {
			return Name{}, fmt.Errorf("name %q: %w", name, err)
		}

		n.Tokens[i] = t
	}

	return n, nil
}

func parseNameToken(token string) (NameToken, error) {
	if err := bracketsMustMatch(token); err != nil {
		return NameToken{}, err
	}

	ts := strings.Split(token, "[")

	indices := make([]int, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		if !strings.HasSuffix(ts[i], "]") {
			return NameToken{}, fmt.Errorf(
				"text after index in %q: %w", token, ErrInvalidName)
		}

		index, err := strconv.Atoi(strings.TrimSuffix(ts[i], "]"))
		if err != nil {
			return NameToken{}, fmt.Errorf(
				"index of %q must be an integer: %w", token, ErrInvalidName)
		}

		indices[i-1] = index
	}

	return NameToken{ElemName: ts[0], Index: indices}, nil
}

func bracketsMustMatch(token string) error {
	open := 0

	for _, c := range token {
		switch c {
		case '[':
			open++
		case ']':
			open--
		}

		if open < 0 || open > 1 {
			return fmt.Errorf("brackets of %q must match: %w",
				token, ErrInvalidName)
		}
	}

	if open != 0 {
		return fmt.Errorf("brackets of %q must match: %w", token, ErrInvalidName)
	}

	return nil
}

// Validate checks that a name follows the naming convention:
//  1. Elements are separated by dots and none of them is empty.
//  2. Elements start with a capital letter and contain no "_", "-" or quote.
//  3. Elements of a series carry square-bracket indices, as in "Ward[2]".
func Validate(name string) error {
	n, err := ParseName(name)
	if err != nil {
		return err
	}

	for _, token := range n.Tokens {
		if err := tokenMustBeValid(token); err != nil {
			return fmt.Errorf("name %q: %w", name, err)
		}
	}

	return nil
}

func tokenMustBeValid(token NameToken) error {
	if token.ElemName == "" {
		return fmt.Errorf("empty element: %w", ErrInvalidName)
	}

	if strings.ContainsAny(token.ElemName, "_\"'- ") {
		return fmt.Errorf("element %q has a forbidden character: %w",
			token.ElemName, ErrInvalidName)
	}

	if token.ElemName[0] < 'A' || token.ElemName[0] > 'Z' {
		return fmt.Errorf("element %q must start with a capital letter: %w",
			token.ElemName, ErrInvalidName)
	}

	return nil
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name from a parent name, an element name and an
// index.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
