package fileutils

import (
	"os"
)

// FileExists checks if a file exsists
func FileExists(filename string) bool {
	if _, err := os.Stat(filename); err == nil {
		return true
	} else {
		return false
	}
}

// IsDir checks if a file exsists and is a directory
func IsDir(filename string) bool {
	if f, err := os.Stat(filename); (err == nil) && (f.IsDir()) {
		return true
	} else {
		return false
	}
}
