package metadata_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doodlemint/doodlemint/pkg/content"
	"github.com/doodlemint/doodlemint/pkg/metadata"
)

func TestAssemble(t *testing.T) {
	const img = content.Locator("https://ipfs.infura.io/ipfs/bafkreiexample")

	t.Run("keeps the image locator exactly", func(t *testing.T) {
		r, err := metadata.Assemble("mossy_violet_otter", "a doodle", img)
		require.NoError(t, err)
		require.Equal(t, img, r.Image)
	})

	t.Run("serializes the three fields", func(t *testing.T) {
		r, err := metadata.Assemble("n", "d", img)
		require.NoError(t, err)
		b, err := r.Marshal()
		require.NoError(t, err)

		var doc map[string]string
		require.NoError(t, json.Unmarshal(b, &doc))
		require.Equal(t, map[string]string{"name": "n", "description": "d", "image": string(img)}, doc)
	})

	t.Run("empty description is allowed", func(t *testing.T) {
		_, err := metadata.Assemble("n", "", img)
		require.NoError(t, err)
	})

	cases := []struct {
		name  string
		rname string
		image content.Locator
		field string
	}{
		{"missing name", "", img, "name"},
		{"missing image", "n", "", "image"},
		{"overlong name", strings.Repeat("x", 257), img, "name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := metadata.Assemble(tc.rname, "d", tc.image)
			var invalid *metadata.InvalidRecordError
			require.ErrorAs(t, err, &invalid)
			require.Len(t, invalid.Fields, 1)
			require.Contains(t, invalid.Fields[0], tc.field)
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("reads a published document", func(t *testing.T) {
		r, err := metadata.Parse([]byte(`{"name":"n","description":"d","image":"https://gw/ipfs/x","extra":1}`))
		require.NoError(t, err)
		require.Equal(t, metadata.Record{Name: "n", Description: "d", Image: "https://gw/ipfs/x"}, r)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		_, err := metadata.Parse([]byte(`{"name":`))
		require.Error(t, err)
	})

	t.Run("rejects documents without a name or image", func(t *testing.T) {
		for doc, fields := range map[string][]string{
			`null`:                   {"name (required)", "image (required)"},
			`{}`:                     {"name (required)", "image (required)"},
			`{"name":"n"}`:           {"image (required)"},
			`{"image":"https://x"}`:  {"name (required)"},
			`{"name":"","image":""}`: {"name (required)", "image (required)"},
		} {
			_, err := metadata.Parse([]byte(doc))
			var invalid *metadata.InvalidRecordError
			require.ErrorAs(t, err, &invalid, doc)
			require.Equal(t, fields, invalid.Fields, doc)
		}
	})

	t.Run("does not limit field lengths", func(t *testing.T) {
		long := strings.Repeat("x", 5000)
		r, err := metadata.Parse(fmt.Appendf(nil, `{"name":%q,"description":%q,"image":"https://gw/ipfs/x"}`, long, long))
		require.NoError(t, err)
		require.Len(t, r.Description, 5000)
	})
}

func TestValidateText(t *testing.T) {
	require.NoError(t, metadata.Record{Name: "n"}.ValidateText())
	var invalid *metadata.InvalidRecordError
	require.ErrorAs(t, metadata.Record{Image: "https://gw/ipfs/x"}.ValidateText(), &invalid)
	require.Equal(t, []string{"name (required)"}, invalid.Fields)
}
