package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/schemefinder/internal/domain/scheme"
)

// Record is a curated scheme as written in an ingest file.
type Record struct {
	ID          string   `yaml:"id" parquet:"id"`
	Name        string   `yaml:"name" parquet:"name"`
	Agency      string   `yaml:"agency" parquet:"agency,optional"`
	Description string   `yaml:"description" parquet:"description,optional"`
	Link        string   `yaml:"link" parquet:"link,optional"`
	Tags        []string `yaml:"tags" parquet:"tags,list"`
	Status      string   `yaml:"status" parquet:"status,optional"`
}

// ToScheme validates the record.
func (r *Record) ToScheme() (scheme.Scheme, error) {
	return scheme.New(r.ID, r.Name, r.Agency, r.Description, r.Link, r.Tags, scheme.Status(r.Status))
}

type fileDoc struct {
	Schemes []Record `yaml:"schemes"`
}

// LoadFile reads records from a YAML file, or from a parquet export when
// the path ends in .parquet.
func LoadFile(path string) ([]Record, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		recs, err := parquet.ReadFile[Record](path)
		if err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
		return recs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	recs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return recs, nil
}

// Parse decodes one or more YAML documents. Each document is either a list
// of records or a mapping with a "schemes" list.
func Parse(data []byte) ([]Record, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out []Record
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		if len(node.Content) == 0 {
			continue
		}

		switch node.Content[0].Kind {
		case yaml.SequenceNode:
			var recs []Record
			if err := node.Decode(&recs); err != nil {
				return nil, fmt.Errorf("decode records: %w", err)
			}
			out = append(out, recs...)
		case yaml.MappingNode:
			var doc fileDoc
			if err := node.Decode(&doc); err != nil {
				return nil, fmt.Errorf("decode records: %w", err)
			}
			out = append(out, doc.Schemes...)
		default:
			return nil, fmt.Errorf("line %d: expected a list of schemes", node.Content[0].Line)
		}
	}
}
