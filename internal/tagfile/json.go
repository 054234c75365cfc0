package tagfile

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/samber/oops"
)

const jsonRecordType = "tag"

type jsonRecord struct {
	Type      string `json:"_type"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Pattern   string `json:"pattern"`
	Line      int    `json:"line"`
	Offset    int64  `json:"offset"`
	Kind      string `json:"kind"`
	Scope     string `json:"scope,omitempty"`
	ScopeKind string `json:"scopeKind,omitempty"`
	FileScope bool   `json:"fileScope,omitempty"`
}

func newJSONRecord(entry Entry) jsonRecord {
	record := jsonRecord{
		Type:      jsonRecordType,
		Name:      entry.Name,
		Path:      entry.Path,
		Pattern:   Address(entry.Tag),
		Line:      entry.Line,
		Offset:    entry.Offset,
		Kind:      entry.Kind.String(),
		FileScope: entry.FileScope,
	}

	if entry.Scope != nil {
		record.Scope = entry.Scope.Name
		record.ScopeKind = entry.Scope.Kind
	}

	return record
}

func encodeJSON(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	encoder := json.NewEncoder(bw)
	encoder.SetEscapeHTML(false)

	for _, entry := range entries {
		if err := encoder.Encode(newJSONRecord(entry)); err != nil {
			return oops.
				Code("TAGFILE_WRITE").
				With("tag", entry.Name).
				Wrapf(err, "encoding json tag")
		}
	}

	if err := bw.Flush(); err != nil {
		return oops.
			Code("TAGFILE_WRITE").
			Wrapf(err, "writing json output")
	}

	return nil
}
