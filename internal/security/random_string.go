package security

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	upperAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerAlphabet = "abcdefghijkmnopqrstuvwxyz"
	digitAlphabet = "23456789"

	TemporaryPasswordLength = 16
)

var (
	errNegativeLength = errors.New("length must be non-negative")
	errEmptyAlphabet  = errors.New("alphabet must not be empty")
)

// RandomString returns a cryptographically secure, unbiased string of the requested length.
func RandomString(length int, alphabet string) (string, error) {
	if length < 0 {
		return "", errNegativeLength
	}
	if length == 0 {
		return "", nil
	}
	if len(alphabet) == 0 {
		return "", errEmptyAlphabet
	}

	value := make([]byte, length)
	for index := range value {
		char, err := randomChar(alphabet)
		if err != nil {
			return "", err
		}
		value[index] = char
	}
	return string(value), nil
}

// TemporaryPassword returns a password with at least one upper case letter,
// one lower case letter and one digit. Look-alike characters are excluded so
// an admin can read it out.
func TemporaryPassword() (string, error) {
	body, err := RandomString(TemporaryPasswordLength-3, upperAlphabet+lowerAlphabet+digitAlphabet)
	if err != nil {
		return "", err
	}

	value := []byte(body)
	for _, alphabet := range []string{upperAlphabet, lowerAlphabet, digitAlphabet} {
		char, err := randomChar(alphabet)
		if err != nil {
			return "", err
		}
		position, err := rand.Int(rand.Reader, big.NewInt(int64(len(value)+1)))
		if err != nil {
			return "", err
		}
		at := int(position.Int64())
		value = append(value[:at], append([]byte{char}, value[at:]...)...)
	}
	return string(value), nil
}

func randomChar(alphabet string) (byte, error) {
	position, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, err
	}
	return alphabet[position.Int64()], nil
}
