package exchange

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Protocol is what differs between venues: where to connect, what to send and how to read a price.
type Protocol interface {
	Name() string
	URL() string
	Subscribe() []byte
	Unsubscribe() []byte
	// Heartbeat returns the application-level ping payload, or nil to send a websocket ping frame.
	Heartbeat() []byte
	// Parse extracts the mark price from a relevant message. Anything else reports ok=false.
	Parse(raw []byte) (price float64, ok bool)
}

// flexFloat decodes a JSON number or a numeric string.
type flexFloat float64

func (v *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return fmt.Errorf("null number")
	}
	s = strings.Trim(s, `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*v = flexFloat(f)
	return nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
