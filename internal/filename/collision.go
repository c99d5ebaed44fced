package filename

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureUnique appends a numeric disambiguator to name until it does
// not collide with an existing file in dir or with a name already
// taken by another plan in the same batch. A collision with selfPath
// (the file being renamed) does not count. The taken set, when
// non-nil, is updated with the chosen name.
func EnsureUnique(dir, name, selfPath string, taken map[string]bool) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for counter := 1; occupied(dir, candidate, selfPath, taken); counter++ {
		candidate = fmt.Sprintf("%s (%d)%s", stem, counter, ext)
	}

	if taken != nil {
		taken[candidate] = true
	}
	return candidate
}

// occupied reports whether the candidate name is unavailable in dir.
func occupied(dir, name, selfPath string, taken map[string]bool) bool {
	if taken != nil && taken[name] {
		return true
	}

	path := filepath.Join(dir, name)
	if selfPath != "" {
		if same, err := sameFile(path, selfPath); err == nil && same {
			return false
		}
	}
	_, err := os.Lstat(path)
	return err == nil
}

// sameFile reports whether two paths refer to the same file.
func sameFile(a, b string) (bool, error) {
	ai, err := os.Lstat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Lstat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}
