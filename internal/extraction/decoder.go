// Package extraction turns a base64 PDF payload into a normalized layout result.
package extraction

import (
	"encoding/base64"
	"strings"
)

// DecodePayload decodes standard base64 into raw bytes.
//
// A leading data URI header ("data:application/pdf;base64,") and embedded
// whitespace are tolerated. The bytes are not checked for being a PDF.
func DecodePayload(payload string) ([]byte, error) {
	s := payload
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 && strings.Contains(s[:i], ";base64") {
			s = s[i+1:]
		}
	}

	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, InvalidInput(err)
	}
	return data, nil
}
