package predict

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxSpecsLen is the maximum accepted length of the specs text in characters.
const MaxSpecsLen = 2000

// Validation failures are distinguished so the API can return a specific
// user-facing message for each.
var (
	ErrMalformedBody = errors.New("request body must be a JSON object with a \"specs\" string field")
	ErrSpecsMissing  = errors.New("specs is required and must not be empty")
	ErrSpecsTooLong  = fmt.Errorf("specs must be at most %d characters", MaxSpecsLen)
)

// ParseRequest validates a raw request body and returns the trimmed specs
// text. It has no side effects.
func ParseRequest(body []byte) (string, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return "", ErrMalformedBody
	}
	specs := strings.TrimSpace(req.Specs)
	if specs == "" {
		return "", ErrSpecsMissing
	}
	if utf8.RuneCountInString(specs) > MaxSpecsLen {
		return "", ErrSpecsTooLong
	}
	return specs, nil
}
