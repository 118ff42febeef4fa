package parser

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/quantity"
)

type dfColumn int

const (
	colFilesystem dfColumn = iota
	colType
	colSize
	colUsed
	colAvail
	colUsePct
	colMount
	colIgnored
)

// header name -> column, plus the block multiplier for size columns
// (0 means the cell carries its own unit, as with df -h).
var dfHeaders = map[string]struct {
	col   dfColumn
	scale int64
}{
	"filesystem":  {colFilesystem, 0},
	"type":        {colType, 0},
	"size":        {colSize, 0},
	"1b-blocks":   {colSize, 1},
	"1k-blocks":   {colSize, 1024},
	"1024-blocks": {colSize, 1024},
	"1m-blocks":   {colSize, 1 << 20},
	"used":        {colUsed, 0},
	"avail":       {colAvail, 0},
	"available":   {colAvail, 0},
	"use%":        {colUsePct, 0},
	"capacity":    {colUsePct, 0},
	"mounted_on":  {colMount, 0},
}

// DiskTable is the result of ParseDiskUsage. Skipped holds rows that could
// not be read, so callers can surface them.
type DiskTable struct {
	Filesystems []domain.FilesystemUsage
	Skipped     []string
}

// ParseDiskUsage reads df output (df -h, df -k, df -B1, with or without -T).
func ParseDiskUsage(subject, text string) (DiskTable, error) {
	var out DiskTable
	sc := bufio.NewScanner(strings.NewReader(text))

	var header string
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			header = sc.Text()
			break
		}
	}
	if header == "" {
		return out, diagerr.Malformed(subject, "no header row")
	}

	cols, scale, err := dfColumns(header)
	if err != nil {
		return out, diagerr.Malformed(subject, "%v", err)
	}
	index := make(map[dfColumn]int, len(cols))
	for i, c := range cols {
		if c != colIgnored {
			index[c] = i
		}
	}

	pending := ""
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		// df puts long device names on a line of their own
		if len(fields) == 1 && len(cols) > 1 {
			pending = fields[0]
			continue
		}
		if pending != "" {
			fields = append([]string{pending}, fields...)
			pending = ""
		}
		if len(fields) < len(cols) {
			// a trailing mount point may be missing; anything shorter is unusable
			if _, ok := index[colMount]; !ok || len(fields) < len(cols)-1 {
				out.Skipped = append(out.Skipped, strings.Join(fields, " "))
				continue
			}
		}
		if len(fields) > len(cols) {
			if mi, ok := index[colMount]; ok && mi == len(cols)-1 {
				fields = append(fields[:mi], strings.Join(fields[mi:], " "))
			}
		}

		fs, ok := dfRow(fields, index, scale)
		if !ok {
			out.Skipped = append(out.Skipped, strings.Join(fields, " "))
			continue
		}
		out.Filesystems = append(out.Filesystems, fs)
	}
	return out, nil
}

func dfColumns(header string) ([]dfColumn, int64, error) {
	h := strings.Replace(header, "Mounted on", "Mounted_on", 1)
	var cols []dfColumn
	var scale int64
	seen := map[dfColumn]bool{}
	for _, name := range strings.Fields(h) {
		def, ok := dfHeaders[strings.ToLower(name)]
		if !ok {
			cols = append(cols, colIgnored)
			continue
		}
		if def.col == colSize {
			scale = def.scale
		}
		cols = append(cols, def.col)
		seen[def.col] = true
	}
	for _, req := range []dfColumn{colFilesystem, colSize, colUsed, colAvail} {
		if !seen[req] {
			return nil, 0, errMissingColumn(req)
		}
	}
	return cols, scale, nil
}

func dfRow(fields []string, index map[dfColumn]int, scale int64) (domain.FilesystemUsage, bool) {
	get := func(c dfColumn) string {
		if i, ok := index[c]; ok && i < len(fields) {
			return fields[i]
		}
		return ""
	}
	size := func(c dfColumn) (quantity.Quantity, bool) {
		cell := get(c)
		if scale > 0 {
			n, err := strconv.ParseInt(cell, 10, 64)
			if err != nil {
				return quantity.Quantity{}, false
			}
			return quantity.FromBytes(n * scale), true
		}
		q, err := quantity.ParseSize(cell)
		return q, err == nil
	}

	fs := domain.FilesystemUsage{
		Filesystem: get(colFilesystem),
		Type:       get(colType),
		MountedOn:  get(colMount),
	}
	var ok bool
	if fs.Size, ok = size(colSize); !ok {
		return fs, false
	}
	if fs.Used, ok = size(colUsed); !ok {
		return fs, false
	}
	if fs.Available, ok = size(colAvail); !ok {
		return fs, false
	}
	if p := get(colUsePct); p != "" && p != "-" {
		if q, err := quantity.ParsePercent(p); err == nil {
			fs.UsePct, fs.HasUsePct = q, true
		}
	}
	return fs, true
}

var columnNames = map[dfColumn]string{
	colFilesystem: "Filesystem",
	colSize:       "Size",
	colUsed:       "Used",
	colAvail:      "Avail",
}

func errMissingColumn(c dfColumn) error {
	return fmt.Errorf("header has no %s column", columnNames[c])
}
