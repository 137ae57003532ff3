package dexseg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutput = `Segments in classes.dex:
- Header: 112
- StringIds: 204380
- Code: 9613640
- TypeIds: 20420
`

func TestParseSegments(t *testing.T) {
	sizes, err := ParseSegments(sampleOutput)
	require.NoError(t, err)
	assert.Equal(t, Sizes{
		"Header":    112,
		"StringIds": 204380,
		"Code":      9613640,
		"TypeIds":   20420,
	}, sizes)
}

func TestParseSegments_Empty(t *testing.T) {
	_, err := ParseSegments("no segments here")
	assert.ErrorContains(t, err, "no segment lines")
}

func TestPrint_SortedBenchmarkLines(t *testing.T) {
	sizes, err := ParseSegments(sampleOutput)
	require.NoError(t, err)

	var b strings.Builder
	Print(&b, "GMSCoreDeploy", sizes)
	assert.Equal(t, `GMSCoreDeploy-Code(CodeSize): 9613640
GMSCoreDeploy-Header(CodeSize): 112
GMSCoreDeploy-StringIds(CodeSize): 204380
GMSCoreDeploy-TypeIds(CodeSize): 20420
`, b.String())
}
