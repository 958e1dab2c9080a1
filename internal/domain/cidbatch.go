package domain

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// BatchStats summarizes one CID batch parse.
type BatchStats struct {
	Lines      int `json:"lines"`
	Parsed     int `json:"parsed"`
	Duplicates int `json:"duplicates"`
}

// ParseCIDBatch reads one CID per line. A line is either "cid",
// "cid,refUrl" or "cid refUrl". Blank lines and lines starting with
// "#" or "//" are ignored; repeated cids keep their first occurrence.
func ParseCIDBatch(r io.Reader) ([]CidItem, BatchStats, error) {
	var stats BatchStats
	items := make([]CidItem, 0)
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		stats.Lines++
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		cid, ref := splitBatchLine(line)
		if cid == "" {
			continue
		}
		if _, dup := seen[cid]; dup {
			stats.Duplicates++
			continue
		}
		seen[cid] = struct{}{}

		items = append(items, CidItem{CID: cid, RefURL: ref})
		stats.Parsed++
	}

	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("%w: read cid batch: %v", ErrValidation, err)
	}

	return items, stats, nil
}

func splitBatchLine(line string) (string, string) {
	var cid, ref string
	if idx := strings.IndexByte(line, ','); idx >= 0 {
		cid, ref = line[:idx], line[idx+1:]
	} else if fields := strings.Fields(line); len(fields) > 0 {
		cid = fields[0]
		if len(fields) > 1 {
			ref = fields[1]
		}
	}
	return strings.Trim(strings.TrimSpace(cid), `"'`), strings.Trim(strings.TrimSpace(ref), `"'`)
}
