// Package blob keeps the original uploaded resume files.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("blob not found")

// Object is a stored file and its MIME type.
type Object struct {
	Data        []byte
	ContentType string
}

// Store persists originals keyed by "<documentID>/<filename>".
type Store interface {
	Put(ctx context.Context, key string, obj Object) error
	Get(ctx context.Context, key string) (*Object, error)
}

// Key builds the object key for a document's original file. Directory
// parts of the filename are dropped.
func Key(documentID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "original"
	}
	return documentID + "/" + name
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	return nil
}
