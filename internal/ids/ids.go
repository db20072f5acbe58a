// Package ids generates public, prefixed references.
package ids

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	PrefixPayment  = "PAY"
	PrefixDocument = "DOC"
)

// NewPaymentReference generates a payment reference in format PAY-{nanoid(10)}.
func NewPaymentReference() (string, error) {
	return withPrefix(PrefixPayment)
}

// NewDocumentToken generates a generated-document token in format DOC-{nanoid(10)}.
func NewDocumentToken() (string, error) {
	return withPrefix(PrefixDocument)
}

func withPrefix(prefix string) (string, error) {
	id, err := gonanoid.New(10)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", prefix, id), nil
}
