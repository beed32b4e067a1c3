package entity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"reflect"
)

// CreateHash replaces the string property of r with the hex HMAC-SHA256 of
// its current value followed by salt, keyed with key, and returns the digest.
func CreateHash(r any, property, salt, key string) (string, error) {
	fv, err := stringProperty(r, property)
	if err != nil {
		return "", err
	}
	sum := digest(fv.String(), salt, key)
	fv.SetString(sum)
	return sum, nil
}

// VerifyHash reports whether plain, salted and keyed the same way, matches
// the digest stored in the property.
func VerifyHash(r any, property, plain, salt, key string) (bool, error) {
	fv, err := stringProperty(r, property)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(fv.String()), []byte(digest(plain, salt, key))), nil
}

func digest(value, salt, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(value + salt))
	return hex.EncodeToString(mac.Sum(nil))
}

func stringProperty(r any, property string) (reflect.Value, error) {
	fv, _, ok := resolve(r, property)
	if !ok {
		return reflect.Value{}, propertyNotFound(property, r)
	}
	if fv.Kind() != reflect.String || !fv.CanSet() {
		return reflect.Value{}, invalidEntity("property %q on %T is not a writable string", property, r)
	}
	return fv, nil
}
