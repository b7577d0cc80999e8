package scheme

import (
	"encoding/json"
	"fmt"

	domscheme "github.com/kailas-cloud/schemefinder/internal/domain/scheme"
)

// schemeDoc is the JSON shape stored at <prefix>scheme:<id>.
type schemeDoc struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Agency      string   `json:"agency,omitempty"`
	Description string   `json:"description,omitempty"`
	Link        string   `json:"link,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Status      string   `json:"status"`
}

func toDoc(s *domscheme.Scheme) schemeDoc {
	return schemeDoc{
		ID:          s.ID(),
		Name:        s.Name(),
		Agency:      s.Agency(),
		Description: s.Description(),
		Link:        s.Link(),
		Tags:        s.Tags(),
		Status:      string(s.Status()),
	}
}

func (d *schemeDoc) toDomain() domscheme.Scheme {
	status := domscheme.Status(d.Status)
	if !status.IsValid() {
		status = domscheme.Active
	}
	return domscheme.Reconstruct(d.ID, d.Name, d.Agency, d.Description, d.Link, d.Tags, status)
}

// parsePathResult decodes a JSON.GET/JSON.MGET reply for path "$", which wraps
// the document in a one-element array.
func parsePathResult(raw []byte) (schemeDoc, error) {
	var docs []schemeDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return schemeDoc{}, fmt.Errorf("unmarshal scheme: %w", err)
	}
	if len(docs) == 0 {
		return schemeDoc{}, fmt.Errorf("empty scheme document")
	}
	return docs[0], nil
}
