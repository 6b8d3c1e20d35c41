package internal

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type ChangeStatus int

const (
	StatusModified ChangeStatus = iota
	StatusAdded
	StatusDeleted
	StatusRenamedNoContentChange
	StatusRenamedWithContentChange
)

func (s ChangeStatus) String() string {
	switch s {
	case StatusAdded:
		return "added"
	case StatusDeleted:
		return "deleted"
	case StatusRenamedNoContentChange:
		return "renamed"
	case StatusRenamedWithContentChange:
		return "renamed+modified"
	default:
		return "modified"
	}
}

// pureRenameCode is the status git prints for a rename at 100% similarity.
const pureRenameCode = "R100"

// ChangeRecord is one line of name-status output.
type ChangeRecord struct {
	Status  ChangeStatus
	Code    string
	Path    string
	OldPath string
}

// Syncable reports whether the record carries content that has to reach the remote.
func (c ChangeRecord) Syncable() bool {
	return c.Status != StatusDeleted && c.Status != StatusRenamedNoContentChange
}

// ParseNameStatus parses `<status>\t<path>` and `<status>\t<old>\t<new>` lines.
// Any line that does not have the expected shape fails the whole parse.
func ParseNameStatus(out string) ([]ChangeRecord, error) {
	if !utf8.ValidString(out) {
		return nil, fmt.Errorf("%w: output is not valid UTF-8", ErrMalformedDiff)
	}

	var records []ChangeRecord
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := parseNameStatusLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d %q: %v", ErrMalformedDiff, lineNo, line, err)
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDiff, err)
	}

	return records, nil
}

func parseNameStatusLine(line string) (ChangeRecord, error) {
	fields := strings.Split(line, "\t")
	if len(fields) == 1 {
		fields = strings.Fields(line)
	}

	code := strings.TrimSpace(fields[0])
	if code == "" {
		return ChangeRecord{}, fmt.Errorf("missing status")
	}
	if len(fields) < 2 || fields[1] == "" {
		return ChangeRecord{}, fmt.Errorf("missing path")
	}
	for i := 1; i < len(fields); i++ {
		p, err := unquotePath(fields[i])
		if err != nil {
			return ChangeRecord{}, err
		}
		fields[i] = p
	}

	switch {
	case code == "D":
		return ChangeRecord{Status: StatusDeleted, Code: code, Path: fields[1]}, nil
	case code[0] == 'R':
		if len(fields) < 3 || fields[2] == "" {
			return ChangeRecord{}, fmt.Errorf("rename without new path")
		}
		status := StatusRenamedWithContentChange
		if code == pureRenameCode {
			status = StatusRenamedNoContentChange
		}
		return ChangeRecord{Status: status, Code: code, Path: fields[2], OldPath: fields[1]}, nil
	case code == "A":
		return ChangeRecord{Status: StatusAdded, Code: code, Path: fields[1]}, nil
	default:
		return ChangeRecord{Status: StatusModified, Code: code, Path: fields[1]}, nil
	}
}

// unquotePath undoes the C-style quoting git applies to paths holding a
// double quote, a backslash or a control character.
func unquotePath(token string) (string, error) {
	if !strings.HasPrefix(token, `"`) {
		return token, nil
	}
	p, err := strconv.Unquote(token)
	if err != nil {
		return "", fmt.Errorf("bad quoted path %s: %v", token, err)
	}
	return p, nil
}

// quotePath quotes p when it could not appear verbatim in a name-status line.
func quotePath(p string) string {
	if strings.ContainsAny(p, `"\`) || strings.IndexFunc(p, unicode.IsControl) >= 0 {
		return strconv.Quote(p)
	}
	return p
}

// ChangeSet is the deduplicated set of paths with content to sync.
type ChangeSet map[string]struct{}

func NewChangeSet(paths ...string) ChangeSet {
	cs := make(ChangeSet, len(paths))
	for _, p := range paths {
		cs.Add(p)
	}
	return cs
}

// ChangeSetFromRecords keeps every syncable record under its current path.
func ChangeSetFromRecords(records []ChangeRecord) ChangeSet {
	cs := make(ChangeSet, len(records))
	for _, rec := range records {
		if rec.Syncable() {
			cs.Add(rec.Path)
		}
	}
	return cs
}

func (cs ChangeSet) Add(path string) {
	cs[path] = struct{}{}
}

func (cs ChangeSet) Has(path string) bool {
	_, ok := cs[path]
	return ok
}

func (cs ChangeSet) Union(other ChangeSet) {
	for p := range other {
		cs[p] = struct{}{}
	}
}

func (cs ChangeSet) Sorted() []string {
	paths := make([]string, 0, len(cs))
	for p := range cs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
