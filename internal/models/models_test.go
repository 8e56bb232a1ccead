package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-board.com/task-board/internal/constants"
	apperrors "task-board.com/task-board/internal/errors"
)

func TestUser_Identity(t *testing.T) {
	assert.Equal(t, "u1", User{ID: "u1", Email: "a@b.c"}.Identity())
	assert.Equal(t, "a@b.c", User{ID: "  ", Email: "a@b.c"}.Identity())
	assert.Equal(t, constants.UnknownIdentity, User{}.Identity())
}

func TestBoardSchema_ValidateCard(t *testing.T) {
	schema := DefaultBoardSchema()
	valid := DemoCards(testNow)[0]
	require.NoError(t, schema.ValidateCard(valid))

	cases := map[string]func(*Card){
		"title":       func(c *Card) { c.Title = " " },
		"responsible": func(c *Card) { c.Responsible = nil },
		"status":      func(c *Card) { c.Status = "Archive" },
		"priority":    func(c *Card) { c.Priority = "high" },
		"deadline":    func(c *Card) { c.Deadline = "01/03/2026" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			c := valid.Clone()
			mutate(&c)

			var vErr *apperrors.ValidationError
			require.ErrorAs(t, schema.ValidateCard(c), &vErr)
			assert.Equal(t, field, vErr.Field)
		})
	}
}

func TestBoardSchema_Validate(t *testing.T) {
	assert.Error(t, BoardSchema{}.Validate())
	assert.Error(t, BoardSchema{
		Columns:    []Column{{ID: "a"}, {ID: "a"}},
		Priorities: []constants.Priority{"p"},
	}.Validate())
	assert.NoError(t, DefaultBoardSchema().Validate())
}

func TestCard_CloneSharesNothing(t *testing.T) {
	c := DemoCards(testNow)[0]
	clone := c.Clone()
	clone.Tags[0].Name = "changed"
	clone.Responsible[0] = "other"

	assert.Equal(t, "Frontend", c.Tags[0].Name)
	assert.Equal(t, "User", c.Responsible[0])
	assert.NotNil(t, DemoCards(testNow)[1].Clone().Comments)
}

var testNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
