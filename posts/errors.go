package posts

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("only the author can edit this post")
)

// lookupErr maps a missing row to ErrNotFound and wraps everything else.
func lookupErr(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("load %s: %w", what, err)
}
