package ui

import (
	"github.com/charmbracelet/huh/spinner"
)

// WithSpinner shows a spinner while fn runs. CI environments get no
// spinner: fn runs directly and its output stays line-oriented.
func WithSpinner(title string, fn func() error) error {
	if IsCI() {
		return fn()
	}
	var fnErr error
	if err := spinner.New().
		Title(title).
		Action(func() { fnErr = fn() }).
		Run(); err != nil {
		return err
	}
	return fnErr
}
