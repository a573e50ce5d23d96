package bizextract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brunobiangulo/bizextract/classifier"
	"github.com/brunobiangulo/bizextract/graph"
	"github.com/brunobiangulo/bizextract/store"
)

// Record is the structured result for one document. A record with Error
// set carries nothing else and serializes as {"error": "..."}.
type Record struct {
	Document        string            `json:"document"`
	Entities        []EntityRecord    `json:"entities"`
	Relations       []graph.Relation  `json:"relations"`
	RelationChains  []graph.Chain     `json:"relation_chains"`
	BusinessProcess classifier.Result `json:"business_process"`
	Statistics      Statistics        `json:"statistics"`
	Error           string            `json:"error,omitempty"`
}

// EntityRecord is a deduplicated entity with its position in the entity
// list as id.
type EntityRecord struct {
	Text string `json:"text"`
	Type string `json:"type"`
	ID   int    `json:"id"`
}

// Statistics summarises a record. TextLength counts runes.
type Statistics struct {
	TotalEntities  int `json:"total_entities"`
	TotalRelations int `json:"total_relations"`
	TotalChains    int `json:"total_chains"`
	TextLength     int `json:"text_length"`
}

// Failed reports whether the record is an error record.
func (r *Record) Failed() bool { return r.Error != "" }

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return marshalUnescaped(struct {
			Error string `json:"error"`
		}{r.Error})
	}
	type plain Record
	return marshalUnescaped(plain(r))
}

func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func newRecord(name string, entities []graph.Entity, relations []graph.Relation,
	chains []graph.Chain, class classifier.Result, textLength int) *Record {
	rec := &Record{
		Document:        name,
		Entities:        make([]EntityRecord, len(entities)),
		Relations:       relations,
		RelationChains:  chains,
		BusinessProcess: class,
		Statistics: Statistics{
			TotalEntities:  len(entities),
			TotalRelations: len(relations),
			TotalChains:    len(chains),
			TextLength:     textLength,
		},
	}
	for i, e := range entities {
		rec.Entities[i] = EntityRecord{Text: e.Text, Type: e.Type, ID: i}
	}
	if rec.Relations == nil {
		rec.Relations = []graph.Relation{}
	}
	if rec.RelationChains == nil {
		rec.RelationChains = []graph.Chain{}
	}
	return rec
}

// WriteRecord writes rec as UTF-8 JSON with two-space indentation and no
// HTML escaping, creating parent directories as needed.
func WriteRecord(path string, rec *Record) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		f.Close()
		return fmt.Errorf("encoding record: %w", err)
	}
	return f.Close()
}

// ReadRecord loads a record written by WriteRecord.
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", path, err)
	}
	return &rec, nil
}

// DefaultOutputPath returns <outputDir>/<stem>_result.json for an input
// document path.
func DefaultOutputPath(outputDir, path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, stem+"_result.json")
}

// archiveRecord converts rec to its store form.
func archiveRecord(rec *Record) (store.Record, error) {
	payload, err := marshalUnescaped(rec)
	if err != nil {
		return store.Record{}, err
	}
	out := store.Record{
		Document: rec.Document,
		Error:    rec.Error,
		Payload:  payload,
	}
	if rec.Failed() {
		return out, nil
	}

	out.Category = rec.BusinessProcess.Category
	out.Subprocess = rec.BusinessProcess.Subprocess
	out.ProcessNumber = rec.BusinessProcess.Number
	out.Confidence = rec.BusinessProcess.Confidence
	out.TextLength = rec.Statistics.TextLength
	for _, e := range rec.Entities {
		out.Entities = append(out.Entities, store.Entity{ID: e.ID, Text: e.Text, Type: e.Type})
	}
	for _, r := range rec.Relations {
		out.Relations = append(out.Relations, store.Relation{
			Source:     r.Source,
			Target:     r.Target,
			Relation:   r.Relation,
			SourceType: r.SourceType,
			TargetType: r.TargetType,
			Context:    r.Context,
		})
	}
	return out, nil
}
