package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionScript(t *testing.T) {
	script := SectionScript(map[string]string{"df": "df -h", "images": "crictl images -o json"}, []string{"df", "images"})
	assert.Contains(t, script, "echo '=== section:df'; ( df -h ) 2>&1;")
	assert.Regexp(t, `section:df.*section:images`, script)
	assert.True(t, strings.HasSuffix(script, "; true"))
}

func TestSplitSections(t *testing.T) {
	out := "preamble from the debug pod\n" +
		"=== section:df\nFilesystem Size\n/dev/sda 1G\n" +
		"=== section:images\nbash: crictl: command not found\n=== exit:127\n" +
		"=== section:containers\n{\"containers\":[]}\n"

	sections := SplitSections(out)
	require.Len(t, sections, 3)
	assert.Equal(t, "Filesystem Size\n/dev/sda 1G\n", sections["df"].Body)
	assert.Zero(t, sections["df"].ExitCode)
	assert.Equal(t, 127, sections["images"].ExitCode)
	assert.Equal(t, "bash: crictl: command not found\n", sections["images"].Body)
	assert.Equal(t, "{\"containers\":[]}\n", sections["containers"].Body)
}

func TestSplitSectionsWithoutMarkers(t *testing.T) {
	assert.Empty(t, SplitSections("Starting pod/worker-0-debug ...\nerror: timed out\n"))
}
