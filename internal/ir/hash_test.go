package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObject struct {
	Kind  Type              `json:"-"`
	ID    string            `json:"id"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

func (o *testObject) ObjectType() Type { return o.Kind }

func TestFingerprintDeterminism(t *testing.T) {
	a := &testObject{Kind: "thing", ID: "1", Attrs: map[string]string{"x": "1", "y": "2"}}
	b := &testObject{Kind: "thing", ID: "1", Attrs: map[string]string{"y": "2", "x": "1"}}

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
	assert.Len(t, fa, 64)
}

func TestFingerprintChangesWithContent(t *testing.T) {
	a := &testObject{Kind: "thing", ID: "1"}
	b := &testObject{Kind: "thing", ID: "2"}
	assert.NotEqual(t, MustFingerprint(a), MustFingerprint(b))
}

func TestFingerprintDomainSeparatesTypes(t *testing.T) {
	a := &testObject{Kind: "location", ID: "1"}
	b := &testObject{Kind: "form", ID: "1"}
	assert.NotEqual(t, MustFingerprint(a), MustFingerprint(b))
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	// "ab" + 0x00 + "c" must differ from "a" + 0x00 + "bc".
	assert.NotEqual(t, hashWithDomain("ab", []byte("c")), hashWithDomain("a", []byte("bc")))
}
