package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password, pepper string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password+pepper), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func MustHashPassword(password, pepper string) string {
	h, err := HashPassword(password, pepper)
	if err != nil {
		panic(err)
	}
	return h
}

func CheckPassword(hash, password, pepper string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password+pepper)) == nil
}
