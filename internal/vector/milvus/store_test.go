package milvus

import (
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"

	"github.com/lawchat/backend/internal/vector"
	"github.com/lawchat/backend/pkg/utils"
)

func TestSchema(t *testing.T) {
	s := &Store{collectionName: "nswsc", vectorDim: 1536}
	schema := s.schema()

	assert.Equal(t, "nswsc", schema.CollectionName)
	assert.Len(t, schema.Fields, 4)
	assert.True(t, schema.Fields[0].PrimaryKey)
	assert.Equal(t, entity.FieldTypeFloatVector, schema.Fields[1].DataType)
	assert.Equal(t, "1536", schema.Fields[1].TypeParams["dim"])
	assert.Equal(t, entity.FieldTypeJSON, schema.Fields[3].DataType)
}

func TestRowID(t *testing.T) {
	stable := vector.Record{Metadata: map[string]string{"source": "https://example.com/a", vector.MetadataChunk: "3"}}
	assert.Equal(t, utils.ChunkID("https://example.com/a", 3), rowID(stable))

	loose := vector.Record{Metadata: map[string]string{"source": "https://example.com/a"}}
	assert.NotEqual(t, rowID(loose), rowID(loose))
}

func TestDecodeMetadata(t *testing.T) {
	assert.Equal(t, map[string]string{"source": "x"}, decodeMetadata([]byte(`{"source":"x"}`)))
	assert.Empty(t, decodeMetadata([]byte(`not json`)))
	assert.Empty(t, decodeMetadata(42))
}
