package statement

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewShiftJISReader decodes a Shift-JIS stream into UTF-8.
func NewShiftJISReader(r io.Reader) io.Reader {
	return transform.NewReader(r, japanese.ShiftJIS.NewDecoder())
}

// DecodeUTF8OrShiftJIS returns b as UTF-8 text. Valid UTF-8 (with or without
// a BOM) is used as is; anything else is decoded as Shift-JIS.
func DecodeUTF8OrShiftJIS(b []byte) ([]byte, error) {
	if utf8.Valid(b) {
		return bytes.TrimPrefix(b, utf8BOM), nil
	}
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), b)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeShiftJIS converts UTF-8 text to Shift-JIS. Used to produce fixtures
// and mirror files in the export encoding.
func EncodeShiftJIS(s string) ([]byte, error) {
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(s))
	if err != nil {
		return nil, err
	}
	return out, nil
}
