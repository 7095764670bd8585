package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDs(t *testing.T) {
	ids, err := ParseIDs([]string{"1", "23", "456"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 23, 456}, ids)

	ids, err = ParseIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = ParseIDs([]string{"1", "abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abc")
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/data/42", ArticleDir("/data", 42))
	assert.Equal(t, "/data/42/image.png", PreviewPath("/data", 42))
	assert.Equal(t, "/data/42/page.html", PagePath("/data", 42))
}
