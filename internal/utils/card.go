package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// GenerateCardNumber generates a card number with the specified prefix and length
func GenerateCardNumber(prefix string, length int) (string, error) {
	if length < len(prefix) || length > 19 {
		return "", fmt.Errorf("invalid card number length: %d", length)
	}

	digits := make([]byte, length-len(prefix))
	_, err := rand.Read(digits)
	if err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(prefix)
	for _, b := range digits {
		digit := b%10 + '0'
		builder.WriteByte(digit)
	}

	return builder.String(), nil
}

// GenerateExpiryDate generates a card expiry date (MM/YY)
func GenerateExpiryDate(now time.Time) string {
	year := now.Year() + 3 // Cards valid for 3 years
	month := now.Month()
	return fmt.Sprintf("%02d/%02d", month, year%100)
}
