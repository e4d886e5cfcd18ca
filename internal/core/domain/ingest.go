package domain

import (
	"encoding/json"
	"io"
)

// FileSource is one uploaded file handed to the ingestion pipeline. Open is
// called at most once, from the pipeline's own goroutine for that file.
type FileSource struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileResult is the per-file outcome of the read/validate phase. A failed
// file carries its parse or schema error and contributes no records.
type FileResult struct {
	File    string        `json:"file"`
	Success bool          `json:"success"`
	Result  []MapLocation `json:"result"`
	Err     error         `json:"-"`
}

// MarshalJSON includes the error detail verbatim so per-file failures can
// be shown to the user as structured data.
func (r FileResult) MarshalJSON() ([]byte, error) {
	out := struct {
		File    string        `json:"file"`
		Success bool          `json:"success"`
		Result  []MapLocation `json:"result"`
		Error   string        `json:"error,omitempty"`
	}{File: r.File, Success: r.Success, Result: r.Result}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// IngestResult aggregates the read/validate phase across all files:
// the combined, identity-assigned records of every accepted file, and one
// FileResult per rejected file.
type IngestResult struct {
	FileData   []MapLocation `json:"fileData"`
	FileErrors []FileResult  `json:"fileErrors"`
}
