package output

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/searchbridge/internal/errors"
)

func TestWriter_StatusHelpers(t *testing.T) {
	// Given: a human-mode writer
	buf := &bytes.Buffer{}
	w := New(buf, false)

	// When: printing each kind of status
	w.Success("Index created")
	w.Warningf("%d documents rejected", 2)
	w.Status("", "indented")

	// Then: icons and messages appear in order
	assert.Equal(t, "✅ Index created\n⚠️  2 documents rejected\n   indented\n", buf.String())
}

func TestWriter_JSONModeSilencesStatus(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, true)

	w.Success("ignored")
	w.Code("ignored")
	require.NoError(t, w.Encode(map[string]int{"num_docs": 3}))

	assert.JSONEq(t, `{"num_docs":3}`, buf.String())
	assert.True(t, w.JSON())
}

func TestWriter_Code(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf, false).Code("a: 1\nb: 2\n")

	assert.Equal(t, "\n  a: 1\n  b: 2\n\n", buf.String())
}

func TestWriter_Table(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf, false).Table([]string{"TERM", "DOCS"}, [][]string{{"sail", "2"}, {"salt", "10"}})

	assert.Equal(t, "TERM  DOCS\nsail  2\nsalt  10\n", buf.String())
}

func TestWriter_Error(t *testing.T) {
	err := errors.InvalidArgument("limit must not be negative")

	t.Run("human", func(t *testing.T) {
		buf := &bytes.Buffer{}
		New(buf, false).Error(err)
		assert.Contains(t, buf.String(), "❌")
		assert.Contains(t, buf.String(), "limit must not be negative")
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		New(buf, true).Error(err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Contains(t, buf.String(), "limit must not be negative")
	})

	t.Run("plain error", func(t *testing.T) {
		buf := &bytes.Buffer{}
		New(buf, false).Error(stderrors.New("boom"))
		assert.Contains(t, buf.String(), "boom")
	})

	t.Run("nil", func(t *testing.T) {
		buf := &bytes.Buffer{}
		New(buf, false).Error(nil)
		assert.Empty(t, buf.String())
	})
}
