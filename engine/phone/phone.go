// Package phone parses operator-entered phone number lists.
package phone

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const numberRule = "required,number,min=10,max=15"

// FormatHint describes the accepted number format.
const FormatHint = "Numbers must be 10-15 digits only, without + or spaces."

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// LineError reports one rejected input line.
type LineError struct {
	Line  int
	Value string
}

func (e LineError) String() string {
	return fmt.Sprintf("line %d: %q is not a valid number", e.Line, e.Value)
}

// ValidationError collects every rejected line of an input.
type ValidationError struct {
	Lines []LineError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		msgs[i] = l.String()
	}
	return "invalid phone numbers: " + strings.Join(msgs, "; ")
}

// Messages returns one human-readable message per rejected line.
func (e *ValidationError) Messages() []string {
	msgs := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		msgs[i] = l.String()
	}
	return msgs
}

// Parse reads one number per line. Blank lines are ignored and duplicates
// are dropped keeping first occurrence. Any invalid line fails the whole input
// with a *ValidationError.
func Parse(text string) ([]string, error) {
	var (
		numbers []string
		invalid []LineError
		seen    = make(map[string]struct{})
	)
	for i, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if err := getValidator().Var(line, numberRule); err != nil {
			invalid = append(invalid, LineError{Line: i + 1, Value: line})
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		numbers = append(numbers, line)
	}
	if len(invalid) > 0 {
		return nil, &ValidationError{Lines: invalid}
	}
	return numbers, nil
}
