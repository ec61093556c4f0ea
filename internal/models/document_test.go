package models

import "testing"

func TestNewUnitMetadata(t *testing.T) {
	tests := []struct {
		name    string
		tenant  string
		source  string
		format  FormatTag
		index   int
		wantErr bool
	}{
		{"valid page", "t1", "notes.pdf", FormatPDF, 3, false},
		{"valid whole file", "t1", "notes.md", FormatText, 0, false},
		{"missing tenant", "", "notes.pdf", FormatPDF, 1, true},
		{"blank source", "t1", "  ", FormatPDF, 1, true},
		{"unknown format", "t1", "a.bin", FormatTag("binary"), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewUnitMetadata(tt.tenant, tt.source, tt.format, tt.index, false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewUnitMetadata() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if m.SchemaVersion != MetadataSchemaVersion {
				t.Errorf("schema version = %d", m.SchemaVersion)
			}
			if tt.index > 0 && (m.UnitIndex == nil || *m.UnitIndex != tt.index) {
				t.Errorf("unit index = %v, want %d", m.UnitIndex, tt.index)
			}
			if tt.index == 0 && m.UnitIndex != nil {
				t.Errorf("unit index should be unset, got %d", *m.UnitIndex)
			}
		})
	}
}

func TestMetadata_ValidateRejectsOldSchema(t *testing.T) {
	m := Metadata{SchemaVersion: 0, TenantID: "t", SourceFile: "f", Format: FormatText}
	if err := m.Validate(); err == nil {
		t.Error("expected error for schema version 0")
	}
}
