package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/inventar/internal/model"
)

// Timestamp decodes the date encodings found in stored and exported
// documents: RFC 3339 strings, plain dates, epoch milliseconds and
// {seconds, nanoseconds} objects.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				t.Time = parsed.UTC()
				return nil
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			t.Time = time.UnixMilli(ms).UTC()
			return nil
		}
		return fmt.Errorf("unrecognized timestamp %q", s)
	case '{':
		var obj struct {
			Seconds      *int64 `json:"seconds"`
			Nanoseconds  int64  `json:"nanoseconds"`
			USeconds     *int64 `json:"_seconds"`
			UNanoseconds int64  `json:"_nanoseconds"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		switch {
		case obj.Seconds != nil:
			t.Time = time.Unix(*obj.Seconds, obj.Nanoseconds).UTC()
		case obj.USeconds != nil:
			t.Time = time.Unix(*obj.USeconds, obj.UNanoseconds).UTC()
		default:
			return fmt.Errorf("timestamp object without seconds: %s", data)
		}
		return nil
	default:
		var ms float64
		if err := json.Unmarshal(data, &ms); err != nil {
			return fmt.Errorf("unrecognized timestamp %s", data)
		}
		t.Time = time.UnixMilli(int64(ms)).UTC()
		return nil
	}
}

// storedDocument is the loosely typed attachment record as found in payloads.
type storedDocument struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	URL        string      `json:"url"`
	Path       string      `json:"path"`
	Type       string      `json:"type"`
	Size       json.Number `json:"size"`
	UploadDate Timestamp   `json:"uploadDate"`
}

func (d storedDocument) normalize(fallbackID string) (model.Document, error) {
	doc := model.Document{
		ID:         d.ID,
		Name:       d.Name,
		URL:        d.URL,
		Path:       d.Path,
		Type:       strings.ToLower(d.Type),
		UploadDate: d.UploadDate.Time,
	}
	if doc.ID == "" {
		doc.ID = fallbackID
	}
	if doc.ID == "" && doc.Path != "" {
		doc.ID = doc.Path[strings.LastIndex(doc.Path, "/")+1:]
	}
	if d.Size != "" {
		size, err := d.Size.Float64()
		if err != nil {
			return model.Document{}, fmt.Errorf("document %s size: %w", doc.ID, err)
		}
		doc.Size = int64(size)
	}
	switch doc.Type {
	case model.DocumentImage, model.DocumentPDF, model.DocumentDocument:
	default:
		doc.Type = model.DocumentDocument
	}
	return doc, nil
}

// DecodeDocuments normalizes a documents payload into a list. The payload may
// be null, a JSON list, or an object keyed by document id.
func DecodeDocuments(raw []byte) ([]model.Document, error) {
	raw = bytes.TrimSpace(raw)
	docs := []model.Document{}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return docs, nil
	}

	switch raw[0] {
	case '[':
		var list []storedDocument
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decoding document list: %w", err)
		}
		for _, d := range list {
			doc, err := d.normalize("")
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	case '{':
		var keyed map[string]storedDocument
		if err := json.Unmarshal(raw, &keyed); err != nil {
			return nil, fmt.Errorf("decoding document map: %w", err)
		}
		for key, d := range keyed {
			doc, err := d.normalize(key)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
		sort.Slice(docs, func(i, j int) bool {
			if !docs[i].UploadDate.Equal(docs[j].UploadDate) {
				return docs[i].UploadDate.Before(docs[j].UploadDate)
			}
			return docs[i].ID < docs[j].ID
		})
	default:
		return nil, fmt.Errorf("unexpected documents payload starting with %q", raw[0])
	}
	return docs, nil
}

// EncodeDocuments serializes documents into the canonical list form.
func EncodeDocuments(docs []model.Document) (string, error) {
	if docs == nil {
		docs = []model.Document{}
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("encoding documents: %w", err)
	}
	return string(data), nil
}
