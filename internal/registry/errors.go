package registry

import "fmt"

// DuplicateFeedError is returned by Add when the name is already taken.
type DuplicateFeedError struct {
	Name string
}

func (e *DuplicateFeedError) Error() string {
	return fmt.Sprintf("duplicate feed name %q", e.Name)
}

// UnknownFeedError is returned by operations addressing a feed that is not
// registered.
type UnknownFeedError struct {
	Name string
}

func (e *UnknownFeedError) Error() string {
	return fmt.Sprintf("unknown feed %q", e.Name)
}

// InvalidNameError is returned when a feed name contains characters outside
// letters, digits, '.', '_' and '-'.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid feed name %q", e.Name)
}
