package service

import (
	"crypto/rand"
	"math/big"
)

const (
	orderNumberLength      = 10
	orderNumberAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxOrderNumberAttempts = 5
)

// generateOrderNumber - 10 случайных символов A-Z0-9.
// Уникальность обеспечивает индекс, при конфликте номер генерируется заново.
func generateOrderNumber() (string, error) {
	buf := make([]byte, orderNumberLength)
	n := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", err
		}
		buf[i] = orderNumberAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
