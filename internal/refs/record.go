// ABOUTME: On-disk record serialization for references.
// ABOUTME: Current format is YAML; the legacy JSON format stays readable.

package refs

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// record is the persisted document for a single reference.
type record struct {
	Content  string            `yaml:"content" json:"content"`
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Created  time.Time         `yaml:"created" json:"created"`
	Updated  time.Time         `yaml:"updated" json:"updated"`
	Version  int               `yaml:"version" json:"version"`
}

// encode serializes a record in the current format.
func (rec *record) encode() ([]byte, error) {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return data, nil
}

// decodeRecord parses persisted record bytes. Legacy selects the JSON
// format; otherwise the current YAML format is used. Records written before
// versioning existed carry no version field and are normalized to version 1.
func decodeRecord(data []byte, legacy bool) (*record, error) {
	var rec record
	if legacy {
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	}
	if rec.Version < 1 {
		rec.Version = 1
	}
	return &rec, nil
}

// reference converts a persisted record into the caller-facing type.
func (rec *record) reference(name string) *Reference {
	return &Reference{
		Name:      name,
		Content:   rec.Content,
		Metadata:  rec.Metadata,
		Version:   rec.Version,
		CreatedAt: rec.Created,
		UpdatedAt: rec.Updated,
	}
}
