// Package notify composes user-facing notification text. Delivery itself is
// out of scope; the dashboard hands the text to the messaging app.
package notify

import (
	"fmt"
	"time"
)

// OTPMessage builds the WhatsApp text that accompanies a freshly issued
// one-time code.
func OTPMessage(lockName, code string, expiresIn time.Duration) string {
	minutes := int(expiresIn.Minutes())
	return fmt.Sprintf("Your OTP for %s is: %s. This code will expire in %d minutes.", lockName, code, minutes)
}
