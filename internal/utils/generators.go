package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// shortToken returns a 9-character lowercase hex token.
func shortToken() string {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the platform is broken; an empty
		// token would collide, so panic loudly instead.
		panic(fmt.Sprintf("utils: rand.Read failed: %v", err))
	}
	return strings.ToLower(hex.EncodeToString(b))[:9]
}

// GenerateTicketID creates a ticket id like FEST-1a2b3c4d5.
func GenerateTicketID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, shortToken())
}

// GenerateOfflineOrderID creates an order id for reservations that
// never touch the payment gateway.
func GenerateOfflineOrderID() string {
	return fmt.Sprintf("offline-%s", shortToken())
}

// GenerateReceiptID creates the receipt reference sent to the gateway
// at order creation.
func GenerateReceiptID(kind string) string {
	return fmt.Sprintf("receipt_%s_%s", kind, shortToken())
}
