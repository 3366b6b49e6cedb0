package mpesa

import (
	"encoding/base64"
	"time"
)

const timestampLayout = "20060102150405"

func Timestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

// Password is base64(shortCode + passkey + timestamp) as required by the STK push API.
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("EAT", 3*60*60)
	}
	return loc
}
