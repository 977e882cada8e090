package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Payload is the polymorphic monetary field attached to gateway
// transactions. The sync collaborator stores it as raw JSON of shape
//
//	{"trader": {"<currencyCode>": <numeric string or number>}}
//
// but historical rows occasionally hold invalid JSON or a bare value. The
// raw text is decoded exactly once, when the row is scanned from storage,
// so every consumer sees one consistent shape: either a currency-keyed
// trader map or the unavailable state.
type Payload struct {
	raw    string
	trader map[string]any
	valid  bool
}

// NewPayload parses raw JSON into a Payload. It never fails; undecodable
// input yields an unavailable payload.
func NewPayload(raw string) Payload {
	p := Payload{raw: raw}
	p.decode()
	return p
}

// NewTraderPayload builds a payload from an already-decoded trader map.
// Used by tests and by ingestion paths that hold structured data.
func NewTraderPayload(trader map[string]any) Payload {
	raw, err := json.Marshal(map[string]any{"trader": trader})
	if err != nil {
		return Payload{}
	}
	return Payload{raw: string(raw), trader: trader, valid: true}
}

func (p *Payload) decode() {
	p.trader = nil
	p.valid = false

	if p.raw == "" {
		return
	}

	var envelope struct {
		Trader map[string]any `json:"trader"`
	}
	if err := json.Unmarshal([]byte(p.raw), &envelope); err != nil {
		return
	}
	if envelope.Trader == nil {
		return
	}

	p.trader = envelope.Trader
	p.valid = true
}

// Valid reports whether the payload decoded into the expected shape.
func (p Payload) Valid() bool {
	return p.valid
}

// Raw returns the stored JSON text.
func (p Payload) Raw() string {
	return p.raw
}

// String renders the payload for diagnostics; unavailable payloads render
// as N/A.
func (p Payload) String() string {
	if !p.valid {
		return "N/A"
	}
	return p.raw
}

// Scan implements sql.Scanner so storage drivers decode the column once on
// read.
func (p *Payload) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*p = Payload{}
		return nil
	case string:
		*p = NewPayload(v)
		return nil
	case []byte:
		*p = NewPayload(string(v))
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Payload", value)
	}
}

// Value implements driver.Valuer; the stored representation stays the raw
// JSON text for compatibility with the upstream sync format.
func (p Payload) Value() (driver.Value, error) {
	if p.raw == "" {
		return nil, nil
	}
	return p.raw, nil
}

// ExtractAmount extracts the numeric value keyed by currency from the
// payload. The second return value is false when the value is unavailable:
// the payload never decoded, or the currency key is absent. A present but
// non-numeric value counts as zero rather than unavailable, mirroring how
// ingested rows have always been read; garbage data therefore scores as a
// zero amount, not a skip.
func ExtractAmount(p Payload, currency string) (decimal.Decimal, bool) {
	if !p.valid {
		return decimal.Zero, false
	}

	value, ok := p.trader[currency]
	if !ok || value == nil {
		return decimal.Zero, false
	}

	switch v := value.(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, true
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, true
		}
		return d, true
	default:
		return decimal.Zero, true
	}
}
