package stream

import "strings"

// Envelope is the framing used by the push provider's stream. Every data
// message carries a topic like "tick.AAPL" and one or more tick payloads.
type Envelope struct {
	Topic string     `json:"topic"` // subscription stream, e.g. "tick.AAPL"
	Type  string     `json:"type"`  // "snapshot" or "delta"
	TS    int64      `json:"ts"`    // server send time (ms since epoch)
	Data  []TickData `json:"data"`
}

// TickData is one observation as the provider encodes it. Prices come as
// strings to survive transport without float rounding.
type TickData struct {
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Volume    string `json:"volume"`
	Open      string `json:"open,omitempty"`
	High      string `json:"high,omitempty"`
	Low       string `json:"low,omitempty"`
	PrevClose string `json:"prevClose,omitempty"`
	Timestamp int64  `json:"timestamp"` // observation time (ms since epoch)
}

// TickTopic builds the subscription topic for a symbol.
func TickTopic(symbol string) string {
	return "tick." + symbol
}

// IsTickTopic returns true if the topic carries tick data.
func IsTickTopic(topic string) bool {
	return strings.HasPrefix(topic, "tick.")
}

// SymbolFromTopic parses the symbol from a topic like "tick.AAPL".
func SymbolFromTopic(topic string) string {
	parts := strings.SplitN(topic, ".", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return ""
}
