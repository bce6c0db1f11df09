// Package ids generates and checks event identifiers.
//
// Identifiers are MongoDB ObjectIDs rendered as 24 lowercase hex characters:
// a 4-byte timestamp, 5 random bytes and a 3-byte counter. They are unique
// with overwhelming probability without any coordination, so every storage
// backend uses the same format.
package ids

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidID is returned when a value is not a well-formed identifier.
var ErrInvalidID = errors.New("invalid identifier")

// Generate returns a new identifier.
func Generate() string {
	return primitive.NewObjectID().Hex()
}

// IsValid reports whether candidate is a syntactically valid identifier.
// It never touches storage.
func IsValid(candidate string) bool {
	_, err := primitive.ObjectIDFromHex(candidate)
	return err == nil
}

// ObjectID converts a hex identifier to its binary form.
func ObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}
