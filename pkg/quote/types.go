package quote

import "encoding/json"

// APIResponse is the response envelope the poll provider wraps every payload
// in. Code 0 means success.
type APIResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"` // delay decoding, varies per endpoint
}

// QuoteListResponse is the result payload of the quotes endpoint.
type QuoteListResponse struct {
	Quotes []Quote `json:"quotes"`
}

// Quote is one delayed observation for one symbol. Prices are strings to
// avoid float rounding in transport.
type Quote struct {
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Volume    string `json:"volume"`
	Open      string `json:"open,omitempty"`
	High      string `json:"high,omitempty"`
	Low       string `json:"low,omitempty"`
	PrevClose string `json:"prevClose,omitempty"`
	Timestamp int64  `json:"timestamp"` // ms since epoch
}
