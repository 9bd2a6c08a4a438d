package utils

import (
	"fmt"
	"strconv"
)

func StringToUint(s string) (uint, error) {
	if s == "" {
		return 0, fmt.Errorf("empty string cannot be converted to uint")
	}

	val, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to convert '%s' to uint: %w", s, err)
	}

	return uint(val), nil
}

// ParseID parses a database ID; zero is rejected since gorm never assigns it.
func ParseID(s string) (uint, error) {
	id, err := StringToUint(s)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("id must be positive")
	}
	return id, nil
}

// OptionalUint parses s, returning def when s is empty.
func OptionalUint(s string, def uint) (uint, error) {
	if s == "" {
		return def, nil
	}
	return StringToUint(s)
}
