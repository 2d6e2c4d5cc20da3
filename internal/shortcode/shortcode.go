// Package shortcode generates and validates the short codes links are addressed by.
package shortcode

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet is the set of symbols a code is made of.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// Length is the length of generated codes.
	Length = 6
	// Tag is the validator tag registered by RegisterValidation.
	Tag = "shortcode"
)

var codeRegexp = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

// Generate returns a random code of Length symbols drawn uniformly from Alphabet.
// The code is not guaranteed to be unique.
func Generate() (string, error) {
	const op = "shortcode.Generate"

	code, err := gonanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate code: %w", op, err)
	}

	return code, nil
}

// Validate reports whether code consists of 6 to 8 alphanumeric characters.
func Validate(code string) bool {
	return codeRegexp.MatchString(code)
}

// RegisterValidation registers the "shortcode" tag on validate.
func RegisterValidation(validate *validator.Validate) error {
	return validate.RegisterValidation(Tag, func(fl validator.FieldLevel) bool {
		return Validate(fl.Field().String())
	})
}
