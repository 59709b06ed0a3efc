package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	type payload struct {
		Code  string `json:"code" validate:"required,alphanum_"`
		Title string `json:"title" validate:"notblank"`
	}

	tests := []struct {
		name string
		data payload
		want map[string]string
	}{
		{name: "valid", data: payload{Code: "CS_101", Title: "Intro"}},
		{
			name: "required",
			data: payload{Title: "Intro"},
			want: map[string]string{"code": "this field is required"},
		},
		{
			name: "alphanum_ & notblank",
			data: payload{Code: "CS-101", Title: "   "},
			want: map[string]string{
				"code":  "only alphanumeric characters and underscores are allowed",
				"title": "this field cannot be blank",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.data)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			got := make(map[string]string)
			for _, fe := range err.(validator.ValidationErrors) {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterOrdering(t *testing.T) {
	ordering := []DBOrdering{{Field: "title", Ascending: true}, {Field: "password_hash"}, {Field: "created_at"}}
	got := FilterOrdering(ordering, "title", "created_at")
	assert.Equal(t, []DBOrdering{{Field: "title", Ascending: true}, {Field: "created_at"}}, got)
	assert.Equal(t, "created_at DESC", got[1].String())
	assert.Nil(t, FilterOrdering(nil, "title"))
}
