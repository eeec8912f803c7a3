package errors

import "testing"

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "default", false},
		{"valid with dots", "shelf.objects", false},
		{"empty", "", true},
		{"path traversal", "../etc/passwd", true},
		{"double slash", "a//b", true},
		{"backslash", `a\b`, true},
		{"control character", "a\x01b", true},
		{"too long", string(make([]byte, 300)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateInstanceName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"Render", false},
		{"Drop Objects", false},
		{"light_1", false},
		{"camera-main", false},
		{"1stLight", true},
		{"", true},
		{"bad!name", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateInstanceName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInstanceName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateNodeType(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"toybox.RandomPlacement", false},
		{"example.nodes.Render", false},
		{"toybox", true},  // missing node segment
		{"Toybox.Render", true}, // package must be lowercase
		{".Render", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateNodeType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNodeType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateVolumeName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"toybox-assets", false},
		{"models.v2", false},
		{"UPPER", true},
		{"-leading", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateVolumeName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVolumeName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateGraphFilename(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"default.yaml", false},
		{"shelf_scene.yml", false},
		{"graphs/default.yaml", true}, // no path separators
		{"default.json", true},
		{".hidden.yaml", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateGraphFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGraphFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid relative", "graphs/default.yaml", false},
		{"valid nested", "nodes/toybox/placement.yaml", false},
		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "graphs/../../secret", true},
		{"backslash", `graphs\default.yaml`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
