package dashboard

import (
	"strings"
	"testing"

	"rocket-backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestTopicInput_SetValueDoesNotValidate(t *testing.T) {
	in := NewTopicInput()
	var got []model.TopicValue
	in.Subscribe(func(v model.TopicValue) { got = append(got, v) })

	in.SetValue("  A ")
	assert.Equal(t, model.TopicValue{Raw: "  A ", Normalized: "A"}, in.Value())
	assert.True(t, IsValidation(in.Validate(), ReasonTooShort))

	in.SetValue(" Travel stories ")
	assert.NoError(t, in.Validate())

	in.Clear()
	assert.Equal(t, model.TopicValue{}, in.Value())
	assert.Len(t, got, 3)
}

func TestValidateTopic(t *testing.T) {
	assert.NoError(t, ValidateTopic("ok"))
	assert.NoError(t, ValidateTopic(strings.Repeat("a", 50)))
	assert.True(t, IsValidation(ValidateTopic(""), ReasonTooShort))
	assert.True(t, IsValidation(ValidateTopic(strings.Repeat("a", 51)), ReasonTooLong))
}

func TestPresetChipProvider(t *testing.T) {
	p := NewPresetChipProvider(nil, nil)
	assert.Equal(t, DefaultPresetTopics, p.Topics())
	assert.Equal(t, DefaultPresetGames, p.Games())
	assert.True(t, p.IsPresetGame(" minecraft "))
	assert.False(t, p.IsPresetGame("Celeste"))
	assert.True(t, p.IsPresetTopic("anime"))

	custom := NewPresetChipProvider([]string{"Cocina", "cocina", "x"}, []string{" Celeste "})
	assert.Equal(t, []string{"Cocina"}, custom.Topics())
	assert.Equal(t, []string{"Celeste"}, custom.Games())

	games := custom.Games()
	games[0] = "mutated"
	assert.Equal(t, []string{"Celeste"}, custom.Games())
}
