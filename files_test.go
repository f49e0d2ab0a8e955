package profile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles_WriteLine(t *testing.T) {
	var buf bytes.Buffer
	f := NewFiles()
	f.SetWriter(&buf)

	var null *float64
	require.Nil(t, f.WriteLine([]any{"a", 1.234, 3, Float(2), null, nil, true}))
	assert.Equal(t, "\"a\",1.23,3,2.00,,,#err#\n", buf.String())

	buf.Reset()
	require.Nil(t, f.WriteLine([]any{`Median "household" income`, 1.0}))
	assert.Equal(t, "\"Median \"\"household\"\" income\",1.00\n", buf.String())
}

func TestFiles_WriteDocument(t *testing.T) {
	var buf bytes.Buffer
	f := NewFiles()
	f.SetWriter(&buf)

	require.Nil(t, f.WriteDocument(testDocument()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "path,name,relation,value,error,numerator,numerator_error", lines[0])
	assert.Equal(t, `"demographics/age/distribution/under_5","Under 5","this",20.00,1.83,100.00,10.00`, lines[4])
	assert.Equal(t, `"demographics/age/distribution/under_5","Under 5","state",,0.00,,`, lines[6])

	// enhanced documents write the selected relations
	buf.Reset()
	f.Header = false
	require.Nil(t, f.WriteDocument(Enhance(testDocument())))
	lines = strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 6)
}

func TestFiles_Create(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "profile.csv")

	f := NewFiles()
	require.Nil(t, f.Create(fileName))
	assert.Equal(t, fileName, f.FileName())
	require.Nil(t, f.WriteDocument(testDocument()))
	require.Nil(t, f.Close())

	b, e := os.ReadFile(fileName)
	require.Nil(t, e)
	assert.True(t, strings.HasPrefix(string(b), "path,name"))

	assert.NotNil(t, NewFiles().Close())
	assert.NotNil(t, NewFiles().WriteLine([]any{1}))
}
