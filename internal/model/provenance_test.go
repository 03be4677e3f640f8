package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourcePriorityRank(t *testing.T) {
	assert.Equal(t, 2, PriorityOfficial.Rank())
	assert.Equal(t, 2, PriorityMixed.Rank())
	assert.Equal(t, 1, PriorityArticle.Rank())
	assert.Equal(t, 0, PriorityNone.Rank())
	assert.Equal(t, 0, SourcePriority("").Rank())
	assert.Equal(t, 0, SourcePriority("bogus").Rank())
}
