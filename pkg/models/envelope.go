package models

// Envelope is the uniform response shape returned to the caller for
// both the AI path and the manual-edit path.
//
// Data is always a JSON array, never null: empty for mutations, empty
// result sets, and failures. RowCount is set for SELECT and
// AffectedRows for mutating statements; on failure, Error and
// ErrorKind are set and the count fields are omitted.
type Envelope struct {
	Success      bool                     `json:"success"`
	SQL          string                   `json:"sql,omitempty"`
	Data         []map[string]interface{} `json:"data"`
	RowCount     *int                     `json:"row_count,omitempty"`
	AffectedRows *int64                   `json:"affected_rows,omitempty"`
	Message      string                   `json:"message,omitempty"`
	Error        string                   `json:"error,omitempty"`
	ErrorKind    string                   `json:"error_kind,omitempty"`
}

// Failure builds a failure envelope. SQL may be empty when the input
// never classified.
func Failure(sql, errMsg, errKind string) *Envelope {
	return &Envelope{
		Success:   false,
		SQL:       sql,
		Data:      []map[string]interface{}{},
		Error:     errMsg,
		ErrorKind: errKind,
	}
}
