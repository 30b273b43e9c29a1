// Package options validates client-supplied ffmpeg flag/value tokens
// against a fixed allow-list before anything reaches the engine.
// Validation is pure: no filesystem, no subprocess, deterministic.
package options

import (
	"fmt"
	"strings"

	"vidpress/models"
)

// MaxTokens bounds the argument-vector size one request may produce.
const MaxTokens = 20

// MaxTokenLength bounds a single value token.
const MaxTokenLength = 256

// Rejection reasons. Wrapped into a VALIDATION_ERROR by Validate so
// callers can branch on the reason while clients see one stable code.
var (
	ErrUnsupportedOption = fmt.Errorf("unsupported option")
	ErrInvalidValue      = fmt.Errorf("invalid value")
	ErrTooManyOptions    = fmt.Errorf("too many options")
)

// Validated is an option set that passed the allow-list. It is
// immutable after construction; the token order is the client's order.
type Validated struct {
	tokens []string
}

// Tokens returns a copy of the validated token sequence.
func (v Validated) Tokens() []string {
	out := make([]string, len(v.tokens))
	copy(out, v.tokens)
	return out
}

// Validate checks every token of args against the allow-list and the
// token-safety rules. An empty args list is valid; the executor falls
// back to default codec/quality flags. Duplicate flags are permitted,
// the later instance wins when ffmpeg parses them.
func Validate(args []string, allowedFlags []string) (Validated, error) {
	if len(args) > MaxTokens {
		return Validated{}, validationError(fmt.Errorf("%w: %d tokens exceeds limit of %d", ErrTooManyOptions, len(args), MaxTokens))
	}

	allowed := make(map[string]bool, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = true
	}

	expectValue := false
	for _, tok := range args {
		if expectValue {
			// Value position: the token is opaque data, never
			// re-interpreted as a flag, but a smuggled flag marker here
			// would shift the vector, so reject it.
			if strings.HasPrefix(tok, "-") {
				return Validated{}, validationError(fmt.Errorf("%w: flag %q where a value was expected", ErrInvalidValue, tok))
			}
			if err := checkValueToken(tok); err != nil {
				return Validated{}, validationError(err)
			}
			expectValue = false
			continue
		}

		if !strings.HasPrefix(tok, "-") {
			return Validated{}, validationError(fmt.Errorf("%w: bare value %q without a preceding flag", ErrInvalidValue, tok))
		}
		if !allowed[tok] {
			return Validated{}, validationError(fmt.Errorf("%w: %q", ErrUnsupportedOption, tok))
		}
		expectValue = true
	}

	if expectValue {
		return Validated{}, validationError(fmt.Errorf("%w: flag %q is missing its value", ErrInvalidValue, args[len(args)-1]))
	}

	tokens := make([]string, len(args))
	copy(tokens, args)
	return Validated{tokens: tokens}, nil
}

// checkValueToken enforces token safety on a value: bounded length, no
// null bytes, no path separators (traversal), no shell metacharacters.
// Values are passed as discrete argv entries, never through a shell,
// so the metacharacter check is a second line, not the only one.
func checkValueToken(tok string) error {
	if tok == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidValue)
	}
	if len(tok) > MaxTokenLength {
		return fmt.Errorf("%w: value exceeds %d bytes", ErrInvalidValue, MaxTokenLength)
	}
	if strings.ContainsRune(tok, 0) {
		return fmt.Errorf("%w: value contains a null byte", ErrInvalidValue)
	}
	if strings.Contains(tok, "..") || strings.ContainsAny(tok, "/\\") {
		return fmt.Errorf("%w: value %q contains path separators", ErrInvalidValue, tok)
	}
	if strings.ContainsAny(tok, ";|&`$<>'\"()") {
		return fmt.Errorf("%w: value %q contains shell metacharacters", ErrInvalidValue, tok)
	}
	return nil
}

// ValidateOutputFormat checks the declared container format against
// the accepted set. An empty format falls back to the default.
func ValidateOutputFormat(format string, accepted []string) (string, error) {
	if format == "" {
		return "mp4", nil
	}
	for _, f := range accepted {
		if format == f {
			return format, nil
		}
	}
	return "", validationError(fmt.Errorf("%w: output format %q, accepted formats: %v", ErrInvalidValue, format, accepted))
}

func validationError(cause error) error {
	return models.NewCompressionError(models.CodeValidation, cause.Error(), cause)
}
