package store

import (
	"fmt"
	"strings"

	validation "github.com/jellydator/validation"

	appvalidation "github.com/brightchat/fieldvault/internal/validation"
)

// CollectionField maps one encrypted collection: the plaintext field the
// application historically wrote and the encrypted field that replaces it.
type CollectionField struct {
	Collection     string
	PlainField     string
	EncryptedField string
}

// Validate checks that every name is a safe identifier. SQL-backed stores
// interpolate collection names into statements, so this is a hard gate.
func (c CollectionField) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Collection, validation.Required, appvalidation.Identifier),
		validation.Field(&c.PlainField, validation.Required, appvalidation.Identifier),
		validation.Field(&c.EncryptedField, validation.Required, appvalidation.Identifier),
	)
}

// ParseCollectionFields parses the ENCRYPTED_COLLECTIONS value, a comma
// separated list of collection:plainField:encryptedField triples, e.g.
//
//	chat_messages:body:body_enc,accounts:notes:notes_enc
func ParseCollectionFields(raw string) ([]CollectionField, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: no collections configured", ErrInvalidCollection)
	}

	var mappings []CollectionField

	parts := strings.Split(raw, ",")
	for _, part := range parts {
		p := strings.Split(strings.TrimSpace(part), ":")
		if len(p) != 3 {
			return nil, fmt.Errorf("%w: %q must be collection:plainField:encryptedField", ErrInvalidCollection, part)
		}

		mapping := CollectionField{
			Collection:     p[0],
			PlainField:     p[1],
			EncryptedField: p[2],
		}
		if err := mapping.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidCollection, part, err)
		}

		mappings = append(mappings, mapping)
	}

	return mappings, nil
}
