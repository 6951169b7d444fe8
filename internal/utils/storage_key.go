package utils

import (
	"fmt"
	"path"
	"strings"

	"github.com/gosimple/slug"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const storageKeyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateStorageKey builds a collision-resistant object key for an uploaded file,
// in the format tasks/<taskID>/<nanoid>-<slugified-name><ext>
func GenerateStorageKey(taskID, originalName string) (string, error) {
	id, err := gonanoid.Generate(storageKeyAlphabet, 12)
	if err != nil {
		return "", fmt.Errorf("failed to generate storage key: %w", err)
	}
	return path.Join("tasks", taskID, id+"-"+SafeFilename(originalName)), nil
}

// SafeFilename slugifies the base name of a client-supplied filename and keeps its extension.
func SafeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(path.Ext(name))
	base := slug.Make(strings.TrimSuffix(name, path.Ext(name)))
	if base == "" {
		base = "file"
	}
	if ext == "." || strings.ContainsAny(ext, " /") {
		ext = ""
	}
	return base + ext
}
