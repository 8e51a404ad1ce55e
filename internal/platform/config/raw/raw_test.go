package raw

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("TED_SOURCE", " TED ")
	t.Setenv("LOG_FORMAT", " json ")

	root := New()
	logc := root.Prefix("LOG_")

	tests := []struct {
		name string
		conf Conf
		key  string
		def  string
		want string
	}{
		{name: "root", conf: root, key: "TED_SOURCE", def: "x", want: "TED"},
		{name: "prefixed", conf: logc, key: "FORMAT", def: "console", want: "json"},
		{name: "missing", conf: logc, key: "NOPE", def: "console", want: "console"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conf.Get(tt.key, tt.def); got != tt.want {
				t.Fatalf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLookupDistinguishesEmpty(t *testing.T) {
	t.Setenv("RAW_EMPTY", "")
	c := New().Prefix("RAW_")

	if _, ok := c.Lookup("EMPTY"); !ok {
		t.Fatalf("Lookup(EMPTY) ok = false, want true")
	}
	if _, ok := c.Lookup("UNSET_FOR_SURE"); ok {
		t.Fatalf("Lookup(UNSET_FOR_SURE) ok = true, want false")
	}
}

func TestGetBool(t *testing.T) {
	c := New().Prefix("B_")
	t.Setenv("B_ON", "on")
	t.Setenv("B_YES", "YES")
	t.Setenv("B_ONE", "1")
	t.Setenv("B_OFF", "off")
	t.Setenv("B_JUNK", "maybe")

	tests := []struct {
		key  string
		def  bool
		want bool
	}{
		{"ON", false, true},
		{"YES", false, true},
		{"ONE", false, true},
		{"OFF", true, false},
		{"JUNK", true, false},
		{"MISSING", true, true},
	}
	for _, tt := range tests {
		if got := c.GetBool(tt.key, tt.def); got != tt.want {
			t.Fatalf("GetBool(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestGetInt(t *testing.T) {
	c := New().Prefix("N_")
	t.Setenv("N_OK", " 400 ")
	t.Setenv("N_NEG", "-5")
	t.Setenv("N_BAD", "12x")

	tests := []struct {
		key  string
		def  int
		want int
	}{
		{"OK", 0, 400},
		{"NEG", 3, 3},
		{"BAD", 9, 9},
		{"MISSING", 11, 11},
	}
	for _, tt := range tests {
		if got := c.GetInt(tt.key, tt.def); got != tt.want {
			t.Fatalf("GetInt(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}
