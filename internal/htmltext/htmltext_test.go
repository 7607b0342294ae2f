package htmltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenPlainTextPassthrough(t *testing.T) {
	out, err := Flatten("  Report to the audi at 9am.  ")
	require.NoError(t, err)
	assert.Equal(t, "Report to the audi at 9am.", out)
}

func TestFlattenParagraphs(t *testing.T) {
	out, err := Flatten("<p>First line</p><p>Second line</p>")
	require.NoError(t, err)
	assert.Contains(t, out, "First line")
	assert.Contains(t, out, "Second line")
	assert.NotContains(t, out, "<p>")
}

func TestFlattenTableRows(t *testing.T) {
	html := `<p>Shortlisted students:</p>
<table>
  <tr><th>Name</th><th>Enrollment</th></tr>
  <tr><td>Priya Sharma</td><td>0101CS211001</td></tr>
  <tr><td>Rahul Verma</td><td>0101CS211002</td></tr>
</table>`
	out, err := Flatten(html)
	require.NoError(t, err)
	assert.Contains(t, out, "Name | Enrollment")
	assert.Contains(t, out, "Priya Sharma | 0101CS211001")
	assert.Contains(t, out, "Rahul Verma | 0101CS211002")
	assert.Contains(t, out, "Shortlisted students:")
}

func TestFlattenDropsScriptAndStyle(t *testing.T) {
	out, err := Flatten(`<style>p{color:red}</style><script>alert(1)</script><p>Visible</p>`)
	require.NoError(t, err)
	assert.Equal(t, "Visible", out)
}

func TestFlattenLineBreaks(t *testing.T) {
	out, err := Flatten("<div>Venue: Audi<br>Time: 9am</div>")
	require.NoError(t, err)
	assert.Contains(t, out, "Venue: Audi")
	assert.Contains(t, out, "Time: 9am")
	assert.NotContains(t, out, "Audi Time")
}

func TestFlattenCollapsesBlankLines(t *testing.T) {
	out, err := Flatten("<p>a</p><p></p><p></p><p></p><p>b</p>")
	require.NoError(t, err)
	assert.NotContains(t, out, "\n\n\n")
}
