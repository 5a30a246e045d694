package props

import (
	"testing"

	"github.com/upkedit/upkedit/errors"
)

func TestWidthForFixed(t *testing.T) {
	want := []int{1, 2, 4, 12, 16}
	for class, w := range want {
		width, n, err := WidthFor(SizeClass(class), nil)
		if err != nil {
			t.Fatalf("class %d: unexpected error: %s", class, err)
		}
		if width != w || n != 0 {
			t.Errorf("class %d: expected width %d consuming 0, got %d consuming %d", class, w, width, n)
		}
	}
}

func TestWidthForPrefixed(t *testing.T) {
	tests := []struct {
		class SizeClass
		b     []byte
		width int
		n     int
	}{
		{SizePrefix8, []byte{0}, 0, 1},
		{SizePrefix8, []byte{63}, 63, 1},
		{SizePrefix8, []byte{64, 0xFF}, 64, 1},
		{SizePrefix16, []byte{0, 0}, 0, 2},
		{SizePrefix16, []byte{63, 0}, 63, 2},
		{SizePrefix16, []byte{64, 0}, 64, 2},
		{SizePrefix16, []byte{0xFF, 0xFF}, 65535, 2},
		{SizePrefix32, []byte{0, 0, 0, 0}, 0, 4},
		{SizePrefix32, []byte{0xFF, 0xFF, 0, 0}, 65535, 4},
		{SizePrefix32, []byte{0, 0, 1, 0}, 65536, 4},
	}
	for _, test := range tests {
		width, n, err := WidthFor(test.class, test.b)
		if err != nil {
			t.Errorf("class %d % X: unexpected error: %s", test.class, test.b, err)
			continue
		}
		if width != test.width || n != test.n {
			t.Errorf("class %d % X: expected (%d, %d), got (%d, %d)", test.class, test.b, test.width, test.n, width, n)
		}
	}
}

func TestWidthForMalformed(t *testing.T) {
	tests := []struct {
		class SizeClass
		b     []byte
	}{
		{SizePrefix8, nil},
		{SizePrefix16, []byte{1}},
		{SizePrefix32, []byte{1, 2, 3}},
		{8, []byte{1, 2, 3, 4}},
		{0xFF, nil},
	}
	for _, test := range tests {
		if _, _, err := WidthFor(test.class, test.b); !errors.Is(err, errors.ErrMalformed) {
			t.Errorf("class %d % X: expected malformed error, got %v", test.class, test.b, err)
		}
	}
}

func TestClassFor(t *testing.T) {
	tests := []struct {
		width int
		class SizeClass
	}{
		{0, SizePrefix8},
		{1, Size1},
		{2, Size2},
		{3, SizePrefix8},
		{4, Size4},
		{12, Size12},
		{16, Size16},
		{255, SizePrefix8},
		{256, SizePrefix16},
		{65535, SizePrefix16},
		{65536, SizePrefix32},
	}
	for _, test := range tests {
		if class := ClassFor(test.width); class != test.class {
			t.Errorf("width %d: expected class %d, got %d", test.width, test.class, class)
		}
		if !test.class.Fits(test.width) {
			t.Errorf("width %d: class %d does not fit", test.width, test.class)
		}
	}
}
