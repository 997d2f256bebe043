package password

import (
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const MinLength = 6

func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// Matches is Compare folded to a bool; any malformed hash counts as a mismatch.
func Matches(hash, plain string) bool {
	return Compare(hash, plain) == nil
}

func LongEnough(plain string) bool {
	return utf8.RuneCountInString(plain) >= MinLength
}
