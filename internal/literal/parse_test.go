package literal

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
)

func TestParseShape(t *testing.T) {
	tests := []struct {
		in      string
		want    Shape
		wantErr bool
	}{
		{"f32[2,3]", MakeShape(dtypes.Float32, 2, 3), false},
		{"i64[]", MakeShape(dtypes.Int64), false},
		{"pred[4]", MakeShape(dtypes.Bool, 4), false},
		{" f16[1] ", MakeShape(dtypes.Float16, 1), false},
		{"f32", Shape{}, true},
		{"f32[2", Shape{}, true},
		{"u8[2]", Shape{}, true},
		{"f32[a]", Shape{}, true},
		{"f32[0]", Shape{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseShape(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseShape(%q) = %s, nil; want error", tt.in, got)
				}

				return
			}

			if err != nil {
				t.Fatalf("ParseShape(%q) error: %v", tt.in, err)
			}

			if !got.Equal(tt.want) {
				t.Errorf("ParseShape(%q) = %s; want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	lit, err := Parse("f32[2,2]=1,2,3,4")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []float32{1, 2, 3, 4}
	got := lit.Flat().([]float32)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %v; want %v", i, got[i], want[i])
		}
	}
}

func TestParse_Scalar(t *testing.T) {
	lit, err := Parse("i64[]=42")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := lit.Flat().([]int64); got[0] != 42 {
		t.Errorf("scalar value = %d; want 42", got[0])
	}
}

func TestParse_Bool(t *testing.T) {
	lit, err := Parse("pred[2]=true,0")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got := lit.Flat().([]bool)
	if !got[0] || got[1] {
		t.Errorf("Flat() = %v; want [true false]", got)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		"f32[2,2]",		// no values
		"f32[2]=1",		// too few values
		"f32[2]=1,2,3",		// too many values
		"f32[2]=1,x",		// not a number
		"i32[1]=1.5",		// float for int dtype
		"pred[1]=maybe",	// not a boolean
		"i32[1]=99999999999",	// overflows int32
		"nope[1]=1",		// unknown dtype
	}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := Parse(in); err == nil {
				t.Errorf("Parse(%q) = nil; want error", in)
			}
		})
	}
}

func TestString_RoundTrip(t *testing.T) {
	inputs := []string{
		"f32[2,2]=1,2.5,-3,4",
		"i64[]=42",
		"pred[2]=true,false",
		"f64[3]=0.1,0.2,0.3",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			lit, err := Parse(in)
			if err != nil {
				t.Fatalf("Parse(%q): %v", in, err)
			}

			again, err := Parse(lit.String())
			if err != nil {
				t.Fatalf("Parse(String()=%q): %v", lit.String(), err)
			}

			if !lit.Equal(again) {
				t.Errorf("round trip changed literal: %q -> %q", in, again)
			}
		})
	}
}
