package ocr

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingReader 记录被读取的字节数
type countingReader struct {
	r    io.Reader
	read int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += n
	return n, err
}

func visionResponse(description string) string {
	padding := strings.Repeat(" ", 1200)
	return `{"responses":[{"textAnnotations":[{"locale":"en",` + padding +
		`"description":"` + description + `","boundingPoly":{"vertices":[]}}]}]}`
}

func TestExtract_EscapeRules(t *testing.T) {
	e := NewFieldExtractor("description")
	got, err := e.Extract(strings.NewReader(visionResponse(`line1\nline2\"quote\"`)))
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\"quote\"", got)
}

func TestExtract_AllEscapes(t *testing.T) {
	e := NewFieldExtractor("description")
	got, err := e.Extract(strings.NewReader(visionResponse(`a\tb\r\nc\\d\/e`)))
	require.NoError(t, err)
	assert.Equal(t, "a b\nc\\d/e", got)
}

func TestExtract_ShortResponse(t *testing.T) {
	e := NewFieldExtractor("description")
	got, err := e.Extract(strings.NewReader(`{"description": "EXIT"}`))
	require.NoError(t, err)
	assert.Equal(t, "EXIT", got)
}

func TestExtract_NoMatch(t *testing.T) {
	e := NewFieldExtractor("description")
	got, err := e.Extract(strings.NewReader(`{"responses":[{}]}` + strings.Repeat("x", 5000)))
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestExtract_AnchorAcrossReadBoundaries(t *testing.T) {
	e := NewFieldExtractor("description")
	// 单字节读取，锚点必然跨越多次读取
	got, err := e.Extract(iotest.OneByteReader(strings.NewReader(visionResponse("STOP"))))
	require.NoError(t, err)
	assert.Equal(t, "STOP", got)
}

func TestExtract_AnchorStraddlesTruncation(t *testing.T) {
	e := NewFieldExtractor("description")
	// 128 字节读取：第一次查找发生在 1024 字节，此时锚点只出现了一半
	body := strings.Repeat("y", 1020) + `"description":"PLATFORM 2"}` + strings.Repeat("z", 3000)
	got, err := e.Extract(iotest.HalfReader(strings.NewReader(body)))
	require.NoError(t, err)
	assert.Equal(t, "PLATFORM 2", got)
}

func TestExtract_ReturnsBeforeStreamEnd(t *testing.T) {
	e := NewFieldExtractor("description")
	tail := strings.Repeat("t", 1<<20)
	cr := &countingReader{r: strings.NewReader(visionResponse("GATE 12") + tail)}

	got, err := e.Extract(cr)
	require.NoError(t, err)
	assert.Equal(t, "GATE 12", got)
	assert.Less(t, cr.read, 4096)
}

func TestExtract_FirstOccurrenceWins(t *testing.T) {
	e := NewFieldExtractor("description")
	body := visionResponse("FIRST") + `,{"description":"SECOND"}`
	got, err := e.Extract(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "FIRST", got)
}

func TestExtract_TruncatedValueReturnsPartial(t *testing.T) {
	e := NewFieldExtractor("description")
	body := strings.Repeat(" ", 1200) + `"description":"HALF A SENT`
	got, err := e.Extract(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "HALF A SENT", got)
}

func TestExtract_ReadError(t *testing.T) {
	e := NewFieldExtractor("description")
	_, err := e.Extract(iotest.ErrReader(errors.New("connection reset")))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
