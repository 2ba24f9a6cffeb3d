package keyfetcher

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"os"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

type PublicKeyFetcher interface {
	FetchPublicKey() (*rsa.PublicKey, error)
}

type PrivateKeyFetcher interface {
	FetchPrivateKey() (*rsa.PrivateKey, error)
}

// From is a type definition for a function that returns a byte slice and an error.
type From func() ([]byte, error)

// FetchPublicKey parses the loaded key as an RSA public key.
func (f From) FetchPublicKey() (*rsa.PublicKey, error) {
	keyBytes, err := f()
	if err != nil {
		return nil, err
	}

	return jwt.ParseRSAPublicKeyFromPEM(keyBytes)
}

// FetchPrivateKey parses the loaded key as an RSA private key.
func (f From) FetchPrivateKey() (*rsa.PrivateKey, error) {
	keyBytes, err := f()
	if err != nil {
		return nil, err
	}

	return jwt.ParseRSAPrivateKeyFromPEM(keyBytes)
}

// FromBase64 decodes a Base64 encoded PEM held in configuration.
func FromBase64(value string) From {
	return func() ([]byte, error) {
		if value == "" {
			return nil, errors.New("key is not found")
		}

		return base64.StdEncoding.DecodeString(value)
	}
}

// FromBase64Env reads the Base64 encoded key from the named environment
// variable when it is fetched.
func FromBase64Env(key string) From {
	return func() ([]byte, error) {
		return FromBase64(os.Getenv(key))()
	}
}

// FromFile reads a PEM file.
func FromFile(path string) From {
	return func() ([]byte, error) {
		return os.ReadFile(path)
	}
}

// Cached memoizes the parsed key pair so tokens are not re-parsed per request.
type Cached struct {
	from From

	pubOnce  sync.Once
	pub      *rsa.PublicKey
	pubErr   error
	privOnce sync.Once
	priv     *rsa.PrivateKey
	privErr  error
}

func NewCached(from From) *Cached {
	return &Cached{from: from}
}

func (c *Cached) FetchPublicKey() (*rsa.PublicKey, error) {
	c.pubOnce.Do(func() {
		c.pub, c.pubErr = c.from.FetchPublicKey()
	})

	return c.pub, c.pubErr
}

func (c *Cached) FetchPrivateKey() (*rsa.PrivateKey, error) {
	c.privOnce.Do(func() {
		c.priv, c.privErr = c.from.FetchPrivateKey()
	})

	return c.priv, c.privErr
}
