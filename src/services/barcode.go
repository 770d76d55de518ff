package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

var barcodePattern = regexp.MustCompile(`^[A-Za-z0-9\-_]{4,50}$`)

// ValidBarcode checks the accepted barcode alphabet and length.
func ValidBarcode(code string) bool {
	return barcodePattern.MatchString(code)
}

// GenerateBarcode returns MED followed by the last 8 digits of the unix
// millisecond clock and 4 random digits.
func GenerateBarcode(now time.Time) string {
	millis := fmt.Sprintf("%d", now.UnixMilli())
	if len(millis) > 8 {
		millis = millis[len(millis)-8:]
	}
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		n = big.NewInt(now.UnixNano() % 10000)
	}
	return fmt.Sprintf("MED%s%04d", millis, n.Int64())
}
