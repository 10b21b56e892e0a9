package binding

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return v
}

func TestInterpolate(t *testing.T) {
	data := decode(t, `{"user":{"name":"Ada","tags":["x","y"]},"total":3,"price":9.5}`)
	cases := []struct {
		in, want string
	}{
		{"Hello ${user.name}", "Hello Ada"},
		{"${user.tags[1]}", "y"},
		{"total=${total} price=${price}", "total=3 price=9.5"},
		{"${missing}", "${missing}"},
		{"${missing|guest}", "guest"},
		{"${user.tags[9]|none}", "none"},
		{"plain text", "plain text"},
	}
	for _, tc := range cases {
		if got := Interpolate(tc.in, data); got != tc.want {
			t.Errorf("Interpolate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestInterpolateNilData(t *testing.T) {
	if got := Interpolate("Hi ${name|there}", nil); got != "Hi there" {
		t.Fatalf("got %q", got)
	}
	if got := Interpolate("Hi ${name}", nil); got != "Hi ${name}" {
		t.Fatalf("got %q", got)
	}
}

func TestLookupRejectsMalformedIndex(t *testing.T) {
	data := decode(t, `{"a":[1,2]}`)
	if _, ok := Lookup(data, "a[x]"); ok {
		t.Fatalf("expected malformed index to fail")
	}
	if _, ok := Lookup(data, "a[0"); ok {
		t.Fatalf("expected unterminated index to fail")
	}
}
