package utils

import (
	"fmt"
	"os"
	"strings"
)

// WithSuffix appends the environment name to a queue or topic so that stages
// sharing an AWS account never consume each other's messages.
func WithSuffix(name string) string {
	env := os.Getenv("API_ENV")
	if env == "" || strings.HasSuffix(name, "_"+env) {
		return name
	}
	return fmt.Sprintf("%s_%s", name, env)
}

// FormatMoney renders integer minor units, e.g. 1050 usd as "10.50 USD".
func FormatMoney(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, strings.ToUpper(currency))
}
