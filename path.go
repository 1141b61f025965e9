package odm

import (
	"strings"

	"github.com/pkg/errors"
)

// PathSeparator separates the segments of a field path. Map keys and array
// indices are both written as plain segments; a key containing the separator
// cannot be told apart from nesting.
const PathSeparator = "."

// DocumentSeparator separates the segments of a document or collection path.
const DocumentSeparator = "/"

// JoinFieldPath appends key to a field path.
func JoinFieldPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + PathSeparator + key
}

// SplitFieldPath splits a dotted field path into its segments.
func SplitFieldPath(path string) ([]string, error) {
	segments := strings.Split(path, PathSeparator)
	for _, segment := range segments {
		if segment == "" {
			return nil, errors.Wrapf(ErrInvalidPath, "field path %q", path)
		}
	}
	return segments, nil
}

// JoinPath builds a document or collection path.
func JoinPath(elem ...string) string {
	return strings.Join(elem, DocumentSeparator)
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, errors.Wrap(ErrInvalidPath, "empty path")
	}
	segments := strings.Split(path, DocumentSeparator)
	for _, segment := range segments {
		if segment == "" || segment == "." || segment == ".." {
			return nil, errors.Wrapf(ErrInvalidPath, "path %q", path)
		}
	}
	return segments, nil
}

// SplitDocumentPath validates a document path (collection/id, possibly
// nested) and returns its segments.
func SplitDocumentPath(path string) ([]string, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	if len(segments)%2 != 0 {
		return nil, errors.Wrapf(ErrInvalidPath, "%q is not a document path", path)
	}
	return segments, nil
}

// SplitCollectionPath validates a collection path and returns its segments.
func SplitCollectionPath(path string) ([]string, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	if len(segments)%2 != 1 {
		return nil, errors.Wrapf(ErrInvalidPath, "%q is not a collection path", path)
	}
	return segments, nil
}

// ParentCollection returns the collection path of a document path.
func ParentCollection(docPath string) string {
	if idx := strings.LastIndex(docPath, DocumentSeparator); idx >= 0 {
		return docPath[:idx]
	}
	return ""
}

// BaseID returns the last segment of a document path.
func BaseID(docPath string) string {
	return docPath[strings.LastIndex(docPath, DocumentSeparator)+1:]
}
