package protocol

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/StrathCole/oracle-attest/pkg/attest"
)

// MeanPrecision is the number of fractional digits of the mean text.
const MeanPrecision = 20

// Frame layout: PublicKeyLen key bytes, SignatureLen signature bytes, then
// the mean as decimal text up to end of stream. Both widths are fixed by the
// signature scheme, so no separators are needed. Adding fields requires a
// length-prefixed format.
const (
	PublicKeyLen = attest.PublicKeyLen
	SignatureLen = attest.SignatureLen
	HeaderLen    = PublicKeyLen + SignatureLen
)

// maxMeanTextLen bounds the trailing text. The widest float64 rendered with
// 20 fractional digits is 309 integer digits + sign + point + 20.
const maxMeanTextLen = 331

// Payload is what a worker writes to its output stream.
type Payload struct {
	PublicKey attest.PublicKey
	Signature attest.Signature
	MeanText  string
}

// FormatMean renders v with exactly MeanPrecision fractional digits.
func FormatMean(v float64) string {
	return strconv.FormatFloat(v, 'f', MeanPrecision, 64)
}

// ParseMean parses mean text and rejects NaN and infinities.
func ParseMean(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrParse, s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not finite", ErrParse, s)
	}
	return v, nil
}

// Canonical returns the float64 that survives a trip through FormatMean and
// ParseMean unchanged, and its text. Twenty fractional digits are fewer than
// 17 significant digits for values below 1e-3, so the raw mean may not
// round-trip. Workers sign the canonical value so the coordinator verifies
// exactly what it parses.
func Canonical(v float64) (float64, string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, "", fmt.Errorf("%w: %v is not finite", ErrParse, v)
	}
	c, err := ParseMean(FormatMean(v))
	if err != nil {
		return 0, "", err
	}
	return c, FormatMean(c), nil
}

// Write emits the payload in a single write so a failing worker never leaves
// a partial frame behind a successful header.
func Write(w io.Writer, p Payload) error {
	buf := make([]byte, 0, HeaderLen+len(p.MeanText))
	buf = append(buf, p.PublicKey[:]...)
	buf = append(buf, p.Signature[:]...)
	buf = append(buf, p.MeanText...)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// Read consumes exactly one payload: two fixed-width reads followed by the
// remaining bytes as text.
func Read(r io.Reader) (Payload, error) {
	var p Payload

	if _, err := io.ReadFull(r, p.PublicKey[:]); err != nil {
		return p, fmt.Errorf("%w: public key: %w", ErrPayloadRead, err)
	}
	if _, err := io.ReadFull(r, p.Signature[:]); err != nil {
		return p, fmt.Errorf("%w: signature: %w", ErrPayloadRead, err)
	}

	text, err := io.ReadAll(io.LimitReader(r, maxMeanTextLen+1))
	if err != nil {
		return p, fmt.Errorf("%w: mean: %w", ErrPayloadRead, err)
	}
	if len(text) == 0 {
		return p, fmt.Errorf("%w: mean: %w", ErrPayloadRead, io.ErrUnexpectedEOF)
	}
	if len(text) > maxMeanTextLen {
		return p, fmt.Errorf("%w: mean text longer than %d bytes", ErrParse, maxMeanTextLen)
	}

	p.MeanText = string(text)
	return p, nil
}

// Mean parses the payload's text and checks it is the canonical rendering,
// so any edit to the text is caught even when it parses to the same float.
func (p Payload) Mean() (float64, error) {
	v, err := ParseMean(p.MeanText)
	if err != nil {
		return 0, err
	}
	if FormatMean(v) != p.MeanText {
		return v, fmt.Errorf("%w: %q", ErrNonCanonical, p.MeanText)
	}
	return v, nil
}
