package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingMetadata matches every MissingMetadataError.
	ErrMissingMetadata = errors.New("missing entity metadata")

	// ErrUnsupportedKey matches every UnsupportedKeyError.
	ErrUnsupportedKey = errors.New("unsupported field key")
)

// MissingMetadataError is returned when a kind is used without having been
// declared.
type MissingMetadataError struct {
	Kind string
	Key  Key
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("no metadata declared for entity %s", e.Kind)
}

func (e *MissingMetadataError) Is(target error) bool {
	return target == ErrMissingMetadata
}

// UnsupportedKeyError is returned when a property or relationship is declared
// on a field the mapper cannot address by name.
type UnsupportedKeyError struct {
	Kind   string
	Field  string
	Reason string
}

func (e *UnsupportedKeyError) Error() string {
	return fmt.Sprintf("cannot declare %s.%s: %s", e.Kind, e.Field, e.Reason)
}

func (e *UnsupportedKeyError) Is(target error) bool {
	return target == ErrUnsupportedKey
}

func IsMissingMetadata(err error) bool {
	return errors.Is(err, ErrMissingMetadata)
}
