// Package zatca encodes the simplified e-invoice QR payload: five TLV fields
// (seller, VAT number, timestamp, total, VAT total) in base64.
package zatca

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	tagSellerName = 1
	tagVATNumber  = 2
	tagTimestamp  = 3
	tagTotal      = 4
	tagVATTotal   = 5
)

var ErrFieldTooLong = errors.New("tlv value exceeds 255 bytes")

type Invoice struct {
	SellerName string
	VATNumber  string
	Timestamp  time.Time
	Total      float64 // VAT inclusive
	VATTotal   float64
}

// Fields returns the five values in tag order.
func (in Invoice) Fields() []string {
	return []string{
		in.SellerName,
		in.VATNumber,
		in.Timestamp.UTC().Format(time.RFC3339),
		strconv.FormatFloat(in.Total, 'f', 2, 64),
		strconv.FormatFloat(in.VATTotal, 'f', 2, 64),
	}
}

// TLV encodes the fields as tag, length, value triplets.
func TLV(in Invoice) ([]byte, error) {
	tags := []byte{tagSellerName, tagVATNumber, tagTimestamp, tagTotal, tagVATTotal}
	var out []byte
	for i, v := range in.Fields() {
		if len(v) > 255 {
			return nil, fmt.Errorf("tag %d: %w", tags[i], ErrFieldTooLong)
		}
		out = append(out, tags[i], byte(len(v)))
		out = append(out, v...)
	}
	return out, nil
}

// QRCode returns the base64 payload to embed in a QR code.
func QRCode(in Invoice) (string, error) {
	b, err := TLV(in)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Decode parses a base64 TLV payload back into tag/value pairs.
func Decode(payload string) (map[int]string, error) {
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	out := make(map[int]string)
	for i := 0; i < len(b); {
		if i+2 > len(b) {
			return nil, errors.New("truncated tlv header")
		}
		tag, n := int(b[i]), int(b[i+1])
		i += 2
		if i+n > len(b) {
			return nil, fmt.Errorf("truncated value for tag %d", tag)
		}
		out[tag] = string(b[i : i+n])
		i += n
	}
	return out, nil
}
