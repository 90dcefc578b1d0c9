package middb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldIndexAddAndLookup(t *testing.T) {
	fi := newFieldIndex()
	fi.Add(1, map[string]string{"color": "red", "size": "m"})
	fi.Add(2, map[string]string{"color": "red"})

	assert.ElementsMatch(t, []uint64{1, 2}, fi.Lookup("color", "red"))
	assert.ElementsMatch(t, []uint64{1}, fi.Lookup("size", "m"))
}

func TestFieldIndexLookupUnknownReturnsNil(t *testing.T) {
	fi := newFieldIndex()
	assert.Nil(t, fi.Lookup("color", "red"))

	fi.Add(1, map[string]string{"color": "red"})
	assert.Nil(t, fi.Lookup("color", "blue"))
	assert.Nil(t, fi.Lookup("size", "m"))
}

func TestFieldIndexRemove(t *testing.T) {
	fi := newFieldIndex()
	fi.Add(1, map[string]string{"color": "red"})
	fi.Add(2, map[string]string{"color": "red"})

	fi.Remove(1, map[string]string{"color": "red"})
	assert.Equal(t, []uint64{2}, fi.Lookup("color", "red"))

	fi.Remove(2, map[string]string{"color": "red"})
	assert.Nil(t, fi.Lookup("color", "red"))
}

func TestFieldIndexUpdateOnlyTouchesChangedPairs(t *testing.T) {
	fi := newFieldIndex()
	fi.Add(1, map[string]string{"color": "red", "size": "m"})

	fi.Update(1, map[string]string{"color": "red", "size": "m"}, map[string]string{"color": "blue", "size": "m"})

	assert.Nil(t, fi.Lookup("color", "red"))
	assert.Equal(t, []uint64{1}, fi.Lookup("color", "blue"))
	assert.Equal(t, []uint64{1}, fi.Lookup("size", "m"))
}

func TestFieldIndexUpdateRemovesDroppedField(t *testing.T) {
	fi := newFieldIndex()
	fi.Add(1, map[string]string{"color": "red", "size": "m"})

	fi.Update(1, map[string]string{"color": "red", "size": "m"}, map[string]string{"color": "red"})

	assert.Nil(t, fi.Lookup("size", "m"))
	assert.Equal(t, []uint64{1}, fi.Lookup("color", "red"))
}
