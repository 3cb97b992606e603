package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// OrderNumberPrefix brands customer-facing order references.
const OrderNumberPrefix = "LL"

// GenerateOrderNumber returns a human-readable reference like LL-2026-042137.
// The random part is not a uniqueness guarantee; callers retry on a
// unique-constraint violation.
func GenerateOrderNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%06d", OrderNumberPrefix, time.Now().Year(), n.Int64()), nil
}
