package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCIDBatch(t *testing.T) {
	input := strings.Join([]string{
		"# exported list",
		"bafyA",
		"",
		"bafyB, https://example.com/complaint/1",
		"bafyC https://example.com/complaint/2",
		"// legacy comment",
		"bafyA",
		`"bafyD"`,
	}, "\n")

	items, stats, err := ParseCIDBatch(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, items, 4)
	assert.Equal(t, CidItem{CID: "bafyA"}, items[0])
	assert.Equal(t, CidItem{CID: "bafyB", RefURL: "https://example.com/complaint/1"}, items[1])
	assert.Equal(t, CidItem{CID: "bafyC", RefURL: "https://example.com/complaint/2"}, items[2])
	assert.Equal(t, "bafyD", items[3].CID)

	assert.Equal(t, 8, stats.Lines)
	assert.Equal(t, 4, stats.Parsed)
	assert.Equal(t, 1, stats.Duplicates)
}

func TestParseCIDBatchEmpty(t *testing.T) {
	items, stats, err := ParseCIDBatch(strings.NewReader("\n\n# nothing\n"))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, stats.Parsed)
}
