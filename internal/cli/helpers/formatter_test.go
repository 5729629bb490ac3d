package helpers

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type unitRow struct {
	Offset  string `header:"OFFSET" json:"offset"`
	Version int    `header:"VERSION" json:"version"`
	Section string `json:"section"` // no header tag, not rendered as a column
}

var sampleRows = []unitRow{
	{Offset: "0x0", Version: 4, Section: ".debug_info"},
	{Offset: "0x2d", Version: 5, Section: ".debug_info"},
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		format  OutputFormat
		wantErr bool
	}{
		{name: "text formatter", format: FormatText},
		{name: "json formatter", format: FormatJSON},
		{name: "csv formatter", format: FormatCSV},
		{name: "unsupported format", format: OutputFormat("yaml"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewFormatter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFormatter() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got == nil {
				t.Errorf("NewFormatter() returned nil formatter")
			}
		})
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&JSONFormatter{}).Format(sampleRows, buf); err != nil {
		t.Fatalf("JSONFormatter.Format() error = %v", err)
	}

	var got []unitRow
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("JSONFormatter.Format() produced invalid JSON: %v", err)
	}
	if len(got) != 2 || got[1].Offset != "0x2d" || got[1].Section != ".debug_info" {
		t.Errorf("JSONFormatter.Format() round trip = %+v", got)
	}
}

func TestTableFormatter_Format(t *testing.T) {
	tests := []struct {
		name         string
		data         interface{}
		wantErr      bool
		wantContains []string
		wantMissing  []string
	}{
		{
			name:         "rows",
			data:         sampleRows,
			wantContains: []string{"OFFSET", "VERSION", "0x0", "0x2d", "5"},
			wantMissing:  []string{".debug_info"},
		},
		{
			name: "empty slice",
			data: []unitRow{},
		},
		{
			name:    "non-slice data",
			data:    sampleRows[0],
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			err := (&TableFormatter{}).Format(tt.data, buf)
			if (err != nil) != tt.wantErr {
				t.Errorf("TableFormatter.Format() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			output := buf.String()
			for _, want := range tt.wantContains {
				if !strings.Contains(output, want) {
					t.Errorf("TableFormatter.Format() output missing %q\nGot: %s", want, output)
				}
			}
			for _, miss := range tt.wantMissing {
				if strings.Contains(output, miss) {
					t.Errorf("TableFormatter.Format() output contains %q\nGot: %s", miss, output)
				}
			}
		})
	}
}

func TestCSVFormatter_Format(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&CSVFormatter{}).Format(sampleRows, buf); err != nil {
		t.Fatalf("CSVFormatter.Format() error = %v", err)
	}
	want := "OFFSET,VERSION\n0x0,4\n0x2d,5\n"
	if buf.String() != want {
		t.Errorf("CSVFormatter.Format() = %q, want %q", buf.String(), want)
	}

	if err := (&CSVFormatter{}).Format(sampleRows[0], buf); err == nil {
		t.Errorf("CSVFormatter.Format() accepted a non-slice")
	}
}
