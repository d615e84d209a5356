package kalshi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// NewRSAAuth carga la clave privada PEM y devuelve el AuthFunc que firma cada
// request con RSA-PSS sobre timestamp+método+path (sin query string).
func NewRSAAuth(keyID, privateKeyPath string) (AuthFunc, error) {
	data, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("kalshi.NewRSAAuth: read key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("kalshi.NewRSAAuth: no PEM block in %q", privateKeyPath)
	}

	key, err := parsePrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("kalshi.NewRSAAuth: parse key: %w", err)
	}

	return func(method, path string) (http.Header, error) {
		// La firma cubre el path sin query.
		if idx := strings.IndexByte(path, '?'); idx >= 0 {
			path = path[:idx]
		}
		timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

		digest := sha256.Sum256([]byte(timestamp + method + path))
		sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		})
		if err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}

		hdr := http.Header{}
		hdr.Set("KALSHI-ACCESS-KEY", keyID)
		hdr.Set("KALSHI-ACCESS-TIMESTAMP", timestamp)
		hdr.Set("KALSHI-ACCESS-SIGNATURE", base64.StdEncoding.EncodeToString(sig))
		return hdr, nil
	}, nil
}

// parsePrivateKey acepta PKCS#1 y PKCS#8, que es lo que exporta el exchange.
func parsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA key: %T", parsed)
	}
	return key, nil
}
