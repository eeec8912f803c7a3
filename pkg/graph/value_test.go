package graph

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/channelkit/channelkit/pkg/errors"
)

func decodeValue(t *testing.T, src string) Value {
	t.Helper()
	var v Value
	if err := yaml.Unmarshal([]byte(src), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", src, err)
	}
	return v
}

func TestValueScalar(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"42", 42},
		{"0.55", 0.55},
		{"true", true},
		{`"Skittles"`, "Skittles"},
	}
	for _, tt := range tests {
		v := decodeValue(t, tt.src)
		got, ok := v.AsScalar()
		if !ok || got != tt.want {
			t.Errorf("decode %q = (%v, %v), want (%v, true)", tt.src, got, ok, tt.want)
		}
	}
}

func TestValueList(t *testing.T) {
	v := decodeValue(t, "[1024, 768]")
	list, ok := v.AsList()
	if !ok || len(list) != 2 {
		t.Fatalf("AsList = (%v, %v)", list, ok)
	}
	if s, _ := list[0].AsScalar(); s != 1024 {
		t.Errorf("list[0] = %v", s)
	}
}

func TestValueLinkShorthand(t *testing.T) {
	v := decodeValue(t, `link: Drop Objects.Objects of Interest`)
	link, ok := v.AsLink()
	if !ok {
		t.Fatal("expected link")
	}
	if link.Node != "Drop Objects" || link.Port != "Objects of Interest" {
		t.Errorf("link = %+v", link)
	}
}

func TestValueLinkMapping(t *testing.T) {
	v := decodeValue(t, "link:\n  node: Floor\n  port: Object Generator")
	link, ok := v.AsLink()
	if !ok || link.Node != "Floor" || link.Port != "Object Generator" {
		t.Errorf("link = (%+v, %v)", link, ok)
	}
}

func TestValueLinkPortWithDots(t *testing.T) {
	// Instance names cannot contain dots, so only the first dot splits.
	link, err := ParseLink("Render.Image v2.1")
	if err != nil {
		t.Fatal(err)
	}
	if link.Node != "Render" || link.Port != "Image v2.1" {
		t.Errorf("link = %+v", link)
	}
}

func TestValueRandom(t *testing.T) {
	v := decodeValue(t, "random:\n  distribution: uniform\n  low: 0.4\n  high: 0.7")
	spec, ok := v.AsRandom()
	if !ok {
		t.Fatal("expected random spec")
	}
	if spec.Distribution != DistUniform || spec.Low != 0.4 || spec.High != 0.7 {
		t.Errorf("spec = %+v", spec)
	}
}

func TestValueNestedLinks(t *testing.T) {
	v := decodeValue(t, "- link: A.Out\n- link: B.Out\n- 7")
	links := v.Links()
	if len(links) != 2 || links[0].Node != "A" || links[1].Node != "B" {
		t.Errorf("Links = %v", links)
	}
}

func TestValueErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code errors.Code
	}{
		{"unknown key", "frobnicate: 1", errors.ErrCodeInvalidValue},
		{"two keys", "link: A.B\nrandom: {distribution: uniform}", errors.ErrCodeInvalidValue},
		{"malformed link", `link: NoDotHere`, errors.ErrCodeUnresolvedRef},
		{"empty port", `link: "Node."`, errors.ErrCodeUnresolvedRef},
		{"bad distribution", "random:\n  distribution: zipf", errors.ErrCodeInvalidValue},
		{"inverted bounds", "random:\n  distribution: uniform\n  low: 2\n  high: 1", errors.ErrCodeInvalidValue},
		{"empty choices", "random:\n  distribution: choice", errors.ErrCodeInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			err := yaml.Unmarshal([]byte(tt.src), &v)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("code = %v, want %v (err: %v)", errors.GetCode(err), tt.code, err)
			}
		})
	}
}

func TestValueMarshalNormalizesLinks(t *testing.T) {
	v := decodeValue(t, "link:\n  node: Floor\n  port: Object Generator")
	out, err := yaml.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	var round Value
	if err := yaml.Unmarshal(out, &round); err != nil {
		t.Fatalf("reparse: %v", err)
	}
	link, _ := round.AsLink()
	if link.String() != "Floor.Object Generator" {
		t.Errorf("round-tripped link = %q", link)
	}
}

func TestRandomSpecValidate(t *testing.T) {
	good := []RandomSpec{
		{Distribution: DistUniform, Low: 0, High: 1},
		{Distribution: DistNormal, Mean: 5, StdDev: 2},
		{Distribution: DistChoice, Choices: []any{"red", "blue"}},
	}
	for _, spec := range good {
		if err := spec.Validate(); err != nil {
			t.Errorf("%s: %v", spec.Distribution, err)
		}
	}
	bad := RandomSpec{Distribution: DistNormal, StdDev: -1}
	if err := bad.Validate(); !errors.Is(err, errors.ErrCodeInvalidValue) {
		t.Errorf("negative stddev: %v", err)
	}
}
