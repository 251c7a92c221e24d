package helpers

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// idLength is the number of hex characters kept by ShortID.
const idLength = 12

func SHA256(input string) string {
	return SHA256Bytes([]byte(input))
}

func SHA256Bytes(input []byte) string {
	hash := sha256.Sum256(input)
	return hex.EncodeToString(hash[:])
}

func SHA256Reader(reader io.Reader) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, reader); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// ShortID returns a stable identifier for formula source text.
func ShortID(source string) string {
	return SHA256(source)[:idLength]
}
