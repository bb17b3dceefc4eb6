package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/todo-list/internal/model"
)

func TestParseID(t *testing.T) {
	id, err := parseID("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	for _, bad := range []string{"0", "-1", "x", ""} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestPrintItems(t *testing.T) {
	var buf bytes.Buffer
	printItems(&buf, nil)
	assert.Equal(t, "Nothing to do.\n", buf.String())

	buf.Reset()
	printItems(&buf, []model.Todo{
		{ID: 2, Text: "Walk dog", Completed: true},
		{ID: 1, Text: "Buy milk"},
	})
	assert.Equal(t, "[x] #2    Walk dog\n[ ] #1    Buy milk\n", buf.String())
}
