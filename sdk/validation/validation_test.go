package validation_test

import (
	"fmt"
	"testing"

	"github.com/jrazmi/devcamper/sdk/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorCollectsInOrder(t *testing.T) {
	var v validation.Validator
	v.Required("name", " ", "Please add a name")
	v.Match("email", "not-an-email", validation.EmailPattern, "Please add a valid email")
	v.MinLen("password", "abc", 6, "Password must be at least 6 characters")
	v.OneOf("role", "admin", []string{"user", "publisher"}, "Invalid role")

	err := v.Err()
	require.Error(t, err)
	assert.Equal(t, "Please add a name, Please add a valid email, Password must be at least 6 characters, Invalid role", err.Error())

	wrapped := fmt.Errorf("create: %w", err)
	assert.True(t, validation.IsFieldErrors(wrapped))
}

func TestValidatorPasses(t *testing.T) {
	var v validation.Validator
	v.Required("name", "Devworks", "Please add a name")
	v.MaxLen("name", "Devworks", 50, "too long")
	v.Match("website", "", validation.URLPattern, "bad url")
	assert.NoError(t, v.Err())
}

func TestEmailPattern(t *testing.T) {
	tests := []struct {
		email string
		ok    bool
	}{
		{"john@gmail.com", true},
		{"first.last@mail.co.uk", true},
		{"a-b@c-d.org", true},
		{"nope", false},
		{"missing@tld", false},
		{"@example.com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, validation.EmailPattern.MatchString(tt.email), tt.email)
	}
}

func TestURLPattern(t *testing.T) {
	assert.True(t, validation.URLPattern.MatchString("https://devworks.com"))
	assert.True(t, validation.URLPattern.MatchString("http://www.modernmedia.io/path?x=1"))
	assert.False(t, validation.URLPattern.MatchString("ftp://devworks.com"))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "devworks-bootcamp", validation.Slugify("Devworks Bootcamp"))
	assert.Equal(t, "codemasters-ux-design", validation.Slugify("  Codemasters: UX_Design! "))
	assert.Equal(t, "cafe-creme", validation.Slugify("Café -- Crème"))
}

func TestDeref(t *testing.T) {
	assert.Equal(t, "x", validation.Deref(validation.StringPtr("x"), "d"))
	assert.Equal(t, "d", validation.Deref[string](nil, "d"))
}
