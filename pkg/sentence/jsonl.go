package sentence

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/xhad/ackaudit/internal/models"
)

// WriteJSONL writes one record per line. The line order follows the slice,
// which Index produces in document order.
func WriteJSONL(w io.Writer, records []models.SentenceRecord) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadJSONL reads records written by WriteJSONL.
func ReadJSONL(r io.Reader) ([]models.SentenceRecord, error) {
	var records []models.SentenceRecord
	dec := json.NewDecoder(r)
	for {
		var rec models.SentenceRecord
		if err := dec.Decode(&rec); err == io.EOF {
			return records, nil
		} else if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}
