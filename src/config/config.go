package config

import (
	"eventadmission/src/types"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

func API_ENV() string {
	return os.Getenv("API_ENV")
}

func JWTSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

// PaymentWindow is how long a PENDING order holds its reservation.
func PaymentWindow() time.Duration {
	return EnvDuration("PAYMENT_WINDOW", 15*time.Minute)
}

func SweepInterval() time.Duration {
	return EnvDuration("SWEEP_INTERVAL", time.Minute)
}

func SweepBatchSize() int {
	return EnvInt("SWEEP_BATCH_SIZE", 100)
}

func InviteSeatPolicy() types.InviteSeatPolicy {
	if types.InviteSeatPolicy(os.Getenv("INVITE_SEAT_POLICY")) == types.SEAT_POLICY_EXPLICIT {
		return types.SEAT_POLICY_EXPLICIT
	}
	return types.SEAT_POLICY_IMPLICIT
}

func DefaultCurrency() string {
	return EnvString("DEFAULT_CURRENCY", "usd")
}

// NotifyChannels lists the enabled notification transports, e.g. "log,kafka,sqs".
func NotifyChannels() []string {
	raw := EnvString("NOTIFY_CHANNELS", "log")
	channels := []string{}
	for _, c := range strings.Split(raw, ",") {
		c = strings.TrimSpace(strings.ToLower(c))
		if c != "" {
			channels = append(channels, c)
		}
	}
	return channels
}

func EnvString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func EnvBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func EnvDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
