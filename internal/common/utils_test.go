package common

import (
	"reflect"
	"testing"
)

func TestSplitTrimmed(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"24,48,72", []string{"24", "48", "72"}},
		{" Delhi , Mumbai ", []string{"Delhi", "Mumbai"}},
		{"Delhi,,London,", []string{"Delhi", "London"}},
		{"", []string{}},
		{" , ", []string{}},
	}
	for _, tc := range cases {
		if got := SplitTrimmed(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("SplitTrimmed(%q) = %v, expected %v", tc.in, got, tc.want)
		}
	}
}
