package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampEncodings(t *testing.T) {
	want := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	inputs := []string{
		`"2024-02-03T04:05:06Z"`,
		`"2024-02-03T04:05:06"`,
		`1706933106000`,
		`"1706933106000"`,
		`{"seconds":1706933106,"nanoseconds":0}`,
		`{"_seconds":1706933106,"_nanoseconds":0}`,
	}
	for _, in := range inputs {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(in), &ts), in)
		assert.True(t, ts.Equal(want), "%s decoded to %v", in, ts.Time)
	}

	var empty Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.True(t, empty.IsZero())

	var bad Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestDecodeDocumentsShapes(t *testing.T) {
	docs, err := DecodeDocuments(nil)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	docs, err = DecodeDocuments([]byte(`[{"id":"x","name":"a.pdf","type":"PDF","size":"12"}]`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "pdf", docs[0].Type)
	assert.Equal(t, int64(12), docs[0].Size)

	docs, err = DecodeDocuments([]byte(`{"k1":{"path":"items/i/k1.png","type":"image"}}`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "k1", docs[0].ID)

	docs, err = DecodeDocuments([]byte(`[{"path":"items/i/f.bin","type":"archive"}]`))
	require.NoError(t, err)
	assert.Equal(t, "f.bin", docs[0].ID)
	assert.Equal(t, "document", docs[0].Type)

	_, err = DecodeDocuments([]byte(`"oops"`))
	assert.Error(t, err)
}
