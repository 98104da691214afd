package types

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// eachLength validates the length of every element of a string slice.
func eachLength(min, max int) validation.Rule {
	return validation.By(func(value any) error {
		var items []string
		switch v := value.(type) {
		case []string:
			items = v
		case *[]string:
			if v == nil {
				return nil
			}
			items = *v
		default:
			return errors.New("must be a list of strings")
		}
		rule := validation.Length(min, max)
		for _, item := range items {
			if strings.TrimSpace(item) == "" {
				return errors.New("must not contain empty items")
			}
			if err := rule.Validate(item); err != nil {
				return err
			}
		}
		return nil
	})
}
