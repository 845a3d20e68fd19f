package utils

import "golang.org/x/crypto/bcrypt"

// HashServiceKey returns the bcrypt hash of a service credential using the
// given cost.  Used by the key provisioning tooling, not at request time.
func HashServiceKey(plain string, cost int) (string, error) {
    b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
    if err != nil {
        return "", err
    }
    return string(b), nil
}

// VerifyServiceKey safely compares a bcrypt hash and a presented key.
func VerifyServiceKey(hash, plain string) bool {
    return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
