package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chazu/lamb/ir"
)

var ErrInvalidCrate = errors.New("invalid crate name")

// CrateName derives a crate name from a file name.
// "my-app.lir" -> "my_app", "lib/std.limg" -> "std"
func CrateName(file string) string {
	base := filepath.Base(file)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	for i := 0; i < len(base); i++ {
		switch c := base[i]; c {
		case '-', '.', ' ':
			b.WriteByte('_')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ValidateCrateName rejects names that cannot be the first component of
// an IR path, including the IR keywords.
func ValidateCrateName(name string) error {
	if !ir.IsIdent(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCrate, name)
	}
	return nil
}
