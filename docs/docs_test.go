package docs

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwaggerPathsLiveUnderBasePath(t *testing.T) {
	var doc struct {
		BasePath string                     `json:"basePath"`
		Paths    map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))

	assert.Equal(t, "/v1", doc.BasePath)
	assert.Contains(t, doc.Paths, "/contact")
	for path := range doc.Paths {
		assert.False(t, strings.HasPrefix(path, "/api/"), "%s is not served under %s", path, doc.BasePath)
	}
}
