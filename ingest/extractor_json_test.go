package ingest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/wei292224644/regdoc"
)

func TestJSONExtractorArray(t *testing.T) {
	content := `[
		{"content": "本标准适用于食品添加剂。", "section_path": ["范围"], "content_type": "scope"},
		{"content": "分子量 105.99", "page": 2}
	]`

	units, err := JSONExtractor{}.Extract(context.Background(), regdoc.Document{ID: "d1"}, []byte(content))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2", len(units))
	}
	if units[0].ContentType != regdoc.ContentScope {
		t.Errorf("unit 0 content type = %q, want scope", units[0].ContentType)
	}
	if !reflect.DeepEqual(units[0].SectionPath, []string{"范围"}) {
		t.Errorf("unit 0 section path = %v", units[0].SectionPath)
	}
	if units[1].Page != 2 {
		t.Errorf("unit 1 page = %d, want 2", units[1].Page)
	}
}

func TestJSONExtractorWrapper(t *testing.T) {
	content := `{"units": [{"content": "one"}, {"content": "two"}]}`

	units, err := JSONExtractor{}.Extract(context.Background(), regdoc.Document{}, []byte(content))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2", len(units))
	}
}

func TestJSONExtractorSingleObject(t *testing.T) {
	units, err := JSONExtractor{}.Extract(context.Background(), regdoc.Document{}, []byte(`{"content": "only"}`))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(units) != 1 || units[0].Text != "only" {
		t.Fatalf("units = %+v", units)
	}
}

func TestJSONExtractorMissingContent(t *testing.T) {
	_, err := JSONExtractor{}.Extract(context.Background(), regdoc.Document{ID: "d1"}, []byte(`[{"content": ""}]`))
	var ferr *regdoc.FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v, want FormatError", err)
	}
	if ferr.Format != regdoc.FormatJSON {
		t.Errorf("format = %v, want json", ferr.Format)
	}
}

func TestJSONExtractorMalformed(t *testing.T) {
	_, err := JSONExtractor{}.Extract(context.Background(), regdoc.Document{}, []byte(`[{"content": "x"`))
	var ferr *regdoc.FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v, want FormatError", err)
	}
}

func TestJSONExtractorUnknownContentType(t *testing.T) {
	units, err := JSONExtractor{}.Extract(context.Background(), regdoc.Document{}, []byte(`[{"content": "x", "content_type": "bogus"}]`))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if units[0].ContentType != "" {
		t.Errorf("content type = %q, want empty", units[0].ContentType)
	}
}
