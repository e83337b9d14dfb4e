package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEntity(t *testing.T) {
	tests := []struct {
		name    string
		entity  *Entity
		wantErr error
	}{
		{"valid", &Entity{ID: "1", Code: "A"}, nil},
		{"valid without code", &Entity{ID: "1"}, nil},
		{"nil", nil, ErrInvalidEntity},
		{"blank id", &Entity{ID: "  "}, ErrEmptyID},
		{
			"fact for same entity",
			&Entity{ID: "1", Facts: []DateRangeFact{{EntityID: "1", RangeID: "10"}}},
			nil,
		},
		{
			"fact without entity id",
			&Entity{ID: "1", Facts: []DateRangeFact{{RangeID: "10"}}},
			nil,
		},
		{
			"foreign fact",
			&Entity{ID: "1", Facts: []DateRangeFact{{EntityID: "2", RangeID: "10"}}},
			ErrForeignFact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntity(tt.entity)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidEntity)
		})
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{"valid", &Document{ID: "1", Text: "A river cruise."}, nil},
		{"nil", nil, ErrInvalidDocument},
		{"blank id", &Document{Text: "x"}, ErrEmptyID},
		{"blank text", &Document{ID: "1", Text: " \n"}, ErrEmptyText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}
