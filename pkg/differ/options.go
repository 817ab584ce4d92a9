package differ

import "slices"

// Option is a functional option for configuring Differ
type Option func(*differ)

// WithFields sets the monitored fields in comparison order
func WithFields(fields ...string) Option {
	return func(d *differ) {
		if len(fields) > 0 {
			d.fields = slices.Clone(fields)
		}
	}
}

// WithIgnoredFields sets fields to ignore during comparison
func WithIgnoredFields(fields ...string) Option {
	return func(d *differ) {
		for _, field := range fields {
			d.ignoreFields[field] = true
		}
	}
}
