package raw

import "testing"

func TestConf_Get(t *testing.T) {
	t.Setenv("NOCSCAN_NAME", " nocscan ")
	t.Setenv("LOG_LEVEL", " debug ")
	t.Setenv("LOG_BLANK", "   ")

	root := New()
	logs := root.Prefix("LOG_")

	cases := []struct {
		name string
		conf Conf
		key  string
		def  string
		want string
	}{
		{"root", root, "NOCSCAN_NAME", "x", "nocscan"},
		{"prefixed", logs, "LEVEL", "info", "debug"},
		{"blank uses default", logs, "BLANK", "info", "info"},
		{"missing uses default", logs, "FORMAT", "console", "console"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.conf.Get(c.key, c.def); got != c.want {
				t.Fatalf("Get(%q) = %q, want %q", c.key, got, c.want)
			}
		})
	}
}

func TestConf_GetBool(t *testing.T) {
	logs := New().Prefix("LOG_")
	for k, v := range map[string]string{
		"T1": "true", "T2": "1", "T3": "YES", "T4": " on ",
		"F1": "false", "F2": "0", "F3": "nope",
	} {
		t.Setenv("LOG_"+k, v)
	}

	cases := []struct {
		key  string
		def  bool
		want bool
	}{
		{"T1", false, true},
		{"T2", false, true},
		{"T3", false, true},
		{"T4", false, true},
		{"F1", true, false},
		{"F2", true, false},
		{"F3", true, false},
		{"MISSING", true, true},
		{"MISSING", false, false},
	}
	for _, c := range cases {
		if got := logs.GetBool(c.key, c.def); got != c.want {
			t.Errorf("GetBool(%q, %v) = %v", c.key, c.def, got)
		}
	}
}

func TestConf_GetInt(t *testing.T) {
	logs := New().Prefix("LOG_")
	t.Setenv("LOG_SAMPLE_EVERY", " 7 ")
	t.Setenv("LOG_JUNK", "12x")
	t.Setenv("LOG_NEG", "-5")

	cases := []struct {
		key  string
		def  int
		want int
	}{
		{"SAMPLE_EVERY", 0, 7},
		{"JUNK", 9, 9},
		{"NEG", 3, 3},
		{"MISSING", 11, 11},
	}
	for _, c := range cases {
		if got := logs.GetInt(c.key, c.def); got != c.want {
			t.Errorf("GetInt(%q) = %d, want %d", c.key, got, c.want)
		}
	}
}

func TestConf_NestedPrefix(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("NOCSCAN_LEVEL", "warn")
	t.Setenv("NOCSCAN_LOG_LEVEL", "debug")

	root := New()
	scan := root.Prefix("NOCSCAN_")
	if got := root.Prefix("LOG_").Get("LEVEL", ""); got != "info" {
		t.Fatalf("LOG_LEVEL = %q", got)
	}
	if got := scan.Get("LEVEL", ""); got != "warn" {
		t.Fatalf("NOCSCAN_LEVEL = %q", got)
	}
	if got := scan.Prefix("LOG_").Get("LEVEL", ""); got != "debug" {
		t.Fatalf("NOCSCAN_LOG_LEVEL = %q", got)
	}
}
