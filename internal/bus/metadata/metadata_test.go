package metadata

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	md := New(KeyCorrelationID, "corr-1", KeySourceService, "billing")
	assert.Equal(t, "corr-1", md[KeyCorrelationID])
	assert.Equal(t, "billing", md[KeySourceService])
}

func TestNew_OddPairDropsTrailingKey(t *testing.T) {
	md := New("a", "1", "dangling")
	assert.Equal(t, Metadata{"a": "1"}, md)
}

func TestWith_DoesNotMutateOriginal(t *testing.T) {
	original := New("a", "1")
	extended := original.With("b", "2")

	assert.Equal(t, Metadata{"a": "1"}, original)
	assert.Equal(t, Metadata{"a": "1", "b": "2"}, extended)
}

func TestWithAll(t *testing.T) {
	md := New("a", "1").WithAll(Metadata{"b": "2", "a": "overridden"})
	assert.Equal(t, Metadata{"a": "overridden", "b": "2"}, md)
}

func TestClone(t *testing.T) {
	original := New("a", "1")
	cloned := original.Clone()
	cloned["a"] = "changed"

	assert.Equal(t, "1", original["a"])

	var nilMD Metadata
	assert.NotNil(t, nilMD.Clone())
}

func TestWatermillConversion(t *testing.T) {
	md := New(KeyEnvelopeID, "env-1")

	wm := ToWatermill(md)
	assert.Equal(t, message.Metadata{KeyEnvelopeID: "env-1"}, wm)

	back := FromWatermill(wm)
	assert.Equal(t, md, back)

	assert.NotNil(t, FromWatermill(nil))
	assert.NotNil(t, ToWatermill(nil))
}
