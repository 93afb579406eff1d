package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, `a &lt;b&gt; "c"`, EscapeHTML(`a <b> "c"`))
	assert.Equal(t, "Tom &amp; Jerry", EscapeHTML("Tom & Jerry"))
	assert.Equal(t, "<b>1 &lt; 2</b>", Bold("1 < 2"))
}
