package naming

import (
	"reflect"
	"regexp"
	"strings"
	"testing"
)

var validResourceName = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

func TestResourceName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already valid", "minecraft", "minecraft"},
		{"uppercase and spaces", "Project Zomboid", "project-zomboid"},
		{"special characters", "Ark: Survival Evolved!", "ark-survival-evolved"},
		{"collapses dashes", "a---b", "a-b"},
		{"trims dashes", "--server--", "server"},
		{"empty input", "", "app"},
		{"only symbols", "!!!", "app"},
		{"long input truncated", strings.Repeat("a", 80), strings.Repeat("a", 63)},
		{"truncation trims trailing dash", strings.Repeat("a", 62) + "-bb", strings.Repeat("a", 62)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResourceName(tt.input)
			if got != tt.want {
				t.Errorf("ResourceName(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if got != "app" && !validResourceName.MatchString(got) {
				t.Errorf("ResourceName(%q) = %q does not match the DNS label pattern", tt.input, got)
			}
		})
	}
}

func TestResourceNameIdempotent(t *testing.T) {
	inputs := []string{
		"Minecraft Java", "--x--", "", "1.20.4", strings.Repeat("x-", 60), "Ark: SE",
	}
	for _, input := range inputs {
		once := ResourceName(input)
		twice := ResourceName(once)
		if once != twice {
			t.Errorf("ResourceName not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestPortName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SERVER_PORT", "server-port"},
		{"25565", "p-25565"},
		{"game-25565", "game-25565"},
		{"", "app"},
	}
	for _, tt := range tests {
		if got := PortName(tt.input); got != tt.want {
			t.Errorf("PortName(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if got := PortName(PortName(tt.input)); got != PortName(tt.input) {
			t.Errorf("PortName not idempotent for %q", tt.input)
		}
	}
}

func TestEnvVar(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Server Port", "SERVER_PORT"},
		{"server-port", "SERVER_PORT"},
		{"__x__", "X"},
		{"", "VAR"},
		{"!!!", "VAR"},
		{"1UP", "VAR_1UP"},
	}
	for _, tt := range tests {
		if got := EnvVar(tt.input); got != tt.want {
			t.Errorf("EnvVar(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if got := EnvVar(EnvVar(tt.input)); got != EnvVar(tt.input) {
			t.Errorf("EnvVar not idempotent for %q", tt.input)
		}
	}
}

func TestParsePortList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []int
	}{
		{"single", "25565", []int{25565}},
		{"comma separated", "25565, 25566", []int{25565, 25566}},
		{"whitespace separated", "80 443", []int{80, 443}},
		{"range", "27015-27017", []int{27015, 27016, 27017}},
		{"reversed range", "27017-27015", []int{27015, 27016, 27017}},
		{"dedupes and sorts", "443, 80, 443", []int{80, 443}},
		{"discards out of range", "0, 70000, 8080", []int{8080}},
		{"discards junk", "abc, 12ab, 8080", []int{8080}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePortList(tt.input)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsePortList(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParsePassiveRange(t *testing.T) {
	tests := []struct {
		input     string
		start     int
		end       int
		wantError bool
	}{
		{"21000-21010", 21000, 21010, false},
		{"21000:21010", 21000, 21010, false},
		{"21000", 0, 0, true},
		{"21010-21000", 0, 0, true},
		{"0-10", 0, 0, true},
		{"21000-70000", 0, 0, true},
		{"a-b", 0, 0, true},
	}
	for _, tt := range tests {
		start, end, err := ParsePassiveRange(tt.input)
		if tt.wantError {
			if err == nil {
				t.Errorf("ParsePassiveRange(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePassiveRange(%q): unexpected error %v", tt.input, err)
			continue
		}
		if start != tt.start || end != tt.end {
			t.Errorf("ParsePassiveRange(%q) = (%d, %d), want (%d, %d)", tt.input, start, end, tt.start, tt.end)
		}
	}
}

func TestStartupVars(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{
			"basic",
			`./server -port {{SERVER_PORT}} -name "{{SERVER_NAME}}"`,
			[]string{"SERVER_NAME", "SERVER_PORT"},
		},
		{
			"complex",
			`export PATH="./jre64/bin:$PATH" ; ./ProjectZomboid64 -port {{SERVER_PORT}} ` +
				`-udpport {{STEAM_PORT}} -servername "{{SERVER_NAME}}" ` +
				`-adminusername {{ADMIN_USER}} -adminpassword "{{ADMIN_PASSWORD}}"`,
			[]string{"ADMIN_PASSWORD", "ADMIN_USER", "SERVER_NAME", "SERVER_PORT", "STEAM_PORT"},
		},
		{"no vars", "./start.sh --nogui", nil},
		{"server memory", "java -Xmx{{SERVER_MEMORY}}M -jar server.jar", []string{"SERVER_MEMORY"}},
		{"duplicates collapse", "{{A_B}} {{A_B}}", []string{"A_B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StartupVars(tt.command)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("StartupVars(%q) = %v, want %v", tt.command, got, tt.want)
			}
		})
	}
}

func TestMemoryQuantityMB(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"6Gi", 6144, true},
		{"6GiB", 6144, true},
		{"2G", 2000, true},
		{"2GB", 2000, true},
		{"512Mi", 512, true},
		{"512M", 512, true},
		{"0.5Gi", 512, true},
		{"1024", 1024, true},
		{"", 0, false},
		{"Gi", 0, false},
		{"six gigs", 0, false},
		{"1.2.3Gi", 0, false},
	}
	for _, tt := range tests {
		got, ok := MemoryQuantityMB(tt.input)
		if ok != tt.ok {
			t.Errorf("MemoryQuantityMB(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("MemoryQuantityMB(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestUnique(t *testing.T) {
	got := Unique([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unique = %v, want %v", got, want)
	}
}

func TestGeneratePassword(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 8; i++ {
		pw := GeneratePassword(16)
		if len(pw) != 16 {
			t.Fatalf("expected length 16, got %d", len(pw))
		}
		for _, c := range pw {
			if !strings.ContainsRune(passwordAlphabet, c) {
				t.Fatalf("unexpected character %q in password", c)
			}
		}
		seen[pw] = struct{}{}
	}
	if len(seen) < 2 {
		t.Error("expected generated passwords to differ")
	}
}
