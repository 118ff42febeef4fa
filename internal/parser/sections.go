package parser

import (
	"bufio"
	"strconv"
	"strings"
)

const sectionPrefix = "=== section:"

// SectionScript wraps each command so its output can be split back out with
// SplitSections; a failing command reports its exit code instead of aborting
// the others.
func SectionScript(cmds map[string]string, order []string) string {
	var b strings.Builder
	for _, name := range order {
		b.WriteString("echo '" + sectionPrefix + name + "'; ")
		b.WriteString("( " + cmds[name] + " ) 2>&1; ")
		b.WriteString(`rc=$?; [ $rc -ne 0 ] && echo "` + exitMarker + `$rc"; `)
	}
	b.WriteString("true")
	return b.String()
}

const exitMarker = "=== exit:"

type Section struct {
	Name     string
	Body     string
	ExitCode int
}

// SplitSections reverses SectionScript.
func SplitSections(out string) map[string]Section {
	res := map[string]Section{}
	var cur *Section
	var body strings.Builder
	flush := func() {
		if cur != nil {
			cur.Body = body.String()
			res[cur.Name] = *cur
		}
		body.Reset()
	}
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, sectionPrefix):
			flush()
			cur = &Section{Name: strings.TrimSpace(strings.TrimPrefix(line, sectionPrefix))}
		case strings.HasPrefix(line, exitMarker) && cur != nil:
			cur.ExitCode, _ = strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, exitMarker)))
		case cur != nil:
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	flush()
	return res
}
