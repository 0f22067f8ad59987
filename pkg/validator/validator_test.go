package validator_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/forumnotify/pkg/validator"
)

func TestApply(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		err := validator.Apply(
			validator.Required("title", "hello"),
			validator.MaxLen("title", "hello", 5),
			validator.Between("hour", 23, 0, 23),
			validator.Positive("id", int64(1)),
			validator.OneOf("kind", "follow", []string{"follow", "system"}),
		)
		assert.NoError(t, err)
	})

	t.Run("collects every failure", func(t *testing.T) {
		err := validator.Apply(
			validator.Required("title", "   "),
			validator.Between("hour", 24, 0, 23),
			validator.Positive("id", 0),
			validator.OneOf("kind", "nope", []string{"follow"}),
		)
		require.Error(t, err)

		ve := validator.ExtractValidationErrors(err)
		require.Len(t, ve, 4)
		assert.True(t, ve.Has("title"))
		assert.True(t, ve.Has("hour"))
		assert.True(t, ve.Has("id"))
		assert.True(t, ve.Has("kind"))
		assert.Equal(t, []string{"must be between 0 and 23"}, ve.Fields()["hour"])
		assert.Contains(t, err.Error(), "validation failed: title: field is required")
	})
}

func TestMaxLen_CountsRunes(t *testing.T) {
	assert.NoError(t, validator.Apply(validator.MaxLen("title", "ünïcödé", 7)))
	assert.Error(t, validator.Apply(validator.MaxLen("title", "ünïcödé!", 7)))
}

func TestWhen(t *testing.T) {
	assert.NoError(t, validator.Apply(validator.When(false, validator.Between("hour", 99, 0, 23))))

	err := validator.Apply(validator.When(true, validator.Between("hour", 99, 0, 23)))
	ve := validator.ExtractValidationErrors(err)
	require.Len(t, ve, 1)
	assert.Equal(t, "hour", ve[0].Field)
}

func TestIsValidationError(t *testing.T) {
	err := validator.Apply(validator.Required("title", ""))
	wrapped := fmt.Errorf("create: %w", err)

	assert.True(t, validator.IsValidationError(wrapped))
	assert.False(t, validator.IsValidationError(fmt.Errorf("plain")))
	assert.Nil(t, validator.ExtractValidationErrors(nil))
}
