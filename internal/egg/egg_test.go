package egg

import (
	"encoding/json"
	"reflect"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("invalid test JSON: %v", err)
	}
	return data
}

func strPtr(s string) *string { return &s }

func TestParseBasic(t *testing.T) {
	data := decode(t, `{
		"name": "Example Egg",
		"description": "Test egg",
		"startup": "./start.sh",
		"docker_images": {"default": "example/image:latest"},
		"variables": [
			{"name": "Server Port", "env_variable": "SERVER_PORT", "default_value": "25565", "required": true},
			{"name": "Optional Flag", "env_variable": "OPTIONAL_FLAG", "default_value": "false", "required": false}
		],
		"config": {"ports": ["25565"]}
	}`)

	e, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Name == nil || *e.Name != "Example Egg" {
		t.Errorf("unexpected name: %v", e.Name)
	}
	if ref, ok := e.DockerImages.Lookup("default"); !ok || ref != "example/image:latest" {
		t.Errorf("unexpected default image: %q", ref)
	}
	if len(e.Variables) != 2 {
		t.Fatalf("expected 2 variables, got %d", len(e.Variables))
	}
	if e.Variables[0].EnvVariable == nil || *e.Variables[0].EnvVariable != "SERVER_PORT" {
		t.Errorf("unexpected env variable: %v", e.Variables[0].EnvVariable)
	}
	if !e.Variables[0].Required {
		t.Error("expected SERVER_PORT to be required")
	}
	if e.Variables[1].Required {
		t.Error("expected OPTIONAL_FLAG to be optional")
	}
	if !reflect.DeepEqual(e.Ports, []int{25565}) {
		t.Errorf("unexpected ports: %v", e.Ports)
	}
}

func TestParseMinimalEgg(t *testing.T) {
	e, err := Parse(decode(t, `{"docker_images": {"default": "nginx:latest"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Name != nil {
		t.Errorf("expected no name, got %q", *e.Name)
	}
	if len(e.Variables) != 0 {
		t.Errorf("expected no variables, got %v", e.Variables)
	}
	if len(e.Ports) != 0 {
		t.Errorf("expected no ports, got %v", e.Ports)
	}
	want := ImageList{{Label: "default", Ref: "nginx:latest"}}
	if !reflect.DeepEqual(e.DockerImages, want) {
		t.Errorf("unexpected images: %v", e.DockerImages)
	}
}

func TestParseNotObject(t *testing.T) {
	for _, raw := range []string{`[]`, `"egg"`, `42`, `null`} {
		if _, err := Parse(decode(t, raw)); err == nil {
			t.Errorf("Parse(%s): expected error", raw)
		} else if _, ok := err.(*ParseError); !ok {
			t.Errorf("Parse(%s): expected *ParseError, got %T", raw, err)
		}
	}
}

func TestParseNameFallsBackToTitle(t *testing.T) {
	e, err := Parse(decode(t, `{"title": "Titled Egg"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Name == nil || *e.Name != "Titled Egg" {
		t.Errorf("unexpected name: %v", e.Name)
	}
}

func TestParseImages(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ImageList
	}{
		{
			"camelCase mapping",
			`{"dockerImages": {"java17": "yolks:java_17"}}`,
			ImageList{{Label: "java17", Ref: "yolks:java_17"}},
		},
		{
			"mapping drops empty values",
			`{"docker_images": {"a": "img:a", "b": ""}}`,
			ImageList{{Label: "a", Ref: "img:a"}},
		},
		{
			"sequence synthesizes labels",
			`{"docker_images": ["img:1", 7, "img:3"]}`,
			ImageList{{Label: "image-1", Ref: "img:1"}, {Label: "image-3", Ref: "img:3"}},
		},
		{
			"bare image string",
			`{"image": "nginx:latest"}`,
			ImageList{{Label: "default", Ref: "nginx:latest"}},
		},
		{
			// Deliberately preserved legacy precedence: an explicit
			// docker_images "default" entry silently wins over the bare
			// top-level image string, while the bare string only fills the
			// slot when it is free.
			"explicit default entry wins over bare string",
			`{"docker_images": {"default": "explicit:1"}, "docker_image": "bare:1"}`,
			ImageList{{Label: "default", Ref: "explicit:1"}},
		},
		{
			"bare string joins other labels",
			`{"docker_images": {"alt": "alt:1"}, "docker_image": "bare:1"}`,
			ImageList{{Label: "alt", Ref: "alt:1"}, {Label: "default", Ref: "bare:1"}},
		},
		{
			"wrong type ignored",
			`{"docker_images": "not-a-mapping"}`,
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Parse(decode(t, tt.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(e.DockerImages) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(e.DockerImages, tt.want) {
				t.Errorf("images = %v, want %v", e.DockerImages, tt.want)
			}
		})
	}
}

func TestParseVariables(t *testing.T) {
	t.Run("required coercions", func(t *testing.T) {
		e, err := Parse(decode(t, `{"variables": [
			{"env_variable": "A", "required": "yes"},
			{"env_variable": "B", "required": " TRUE "},
			{"env_variable": "C", "required": 1},
			{"env_variable": "D", "required": 0},
			{"env_variable": "E", "required": "nope"},
			{"env_variable": "F", "is_required": true},
			{"env_variable": "G"}
		]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []bool{true, true, true, false, false, true, false}
		if len(e.Variables) != len(want) {
			t.Fatalf("expected %d variables, got %d", len(want), len(e.Variables))
		}
		for i, required := range want {
			if e.Variables[i].Required != required {
				t.Errorf("variable %s: required = %v, want %v",
					e.Variables[i].Name, e.Variables[i].Required, required)
			}
		}
	})

	t.Run("required key precedence", func(t *testing.T) {
		e, err := Parse(decode(t, `{"variables": [
			{"env_variable": "A", "required": false, "is_required": true}
		]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.Variables[0].Required {
			t.Error("required should win over is_required")
		}
	})

	t.Run("name falls back to env variable", func(t *testing.T) {
		e, err := Parse(decode(t, `{"variables": [{"envVariable": "SERVER_PORT"}]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.Variables[0].Name != "SERVER_PORT" {
			t.Errorf("name = %q, want SERVER_PORT", e.Variables[0].Name)
		}
	})

	t.Run("default falls back to legacy key", func(t *testing.T) {
		e, err := Parse(decode(t, `{"variables": [{"env_variable": "X", "default": "5"}]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.Variables[0].DefaultValue == nil || *e.Variables[0].DefaultValue != "5" {
			t.Errorf("default = %v, want 5", e.Variables[0].DefaultValue)
		}
	})

	t.Run("non-object entries skipped", func(t *testing.T) {
		e, err := Parse(decode(t, `{"variables": [42, {"env_variable": "X"}]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(e.Variables) != 1 {
			t.Errorf("expected 1 variable, got %d", len(e.Variables))
		}
	})

	t.Run("environment mapping synthesized", func(t *testing.T) {
		e, err := Parse(decode(t, `{"environment": {"B_VAR": "2", "A_VAR": "1"}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(e.Variables) != 2 {
			t.Fatalf("expected 2 variables, got %d", len(e.Variables))
		}
		if e.Variables[0].Name != "A_VAR" || e.Variables[1].Name != "B_VAR" {
			t.Errorf("unexpected variable order: %v", e.Variables)
		}
		for _, v := range e.Variables {
			if v.Required {
				t.Errorf("synthesized variable %s should not be required", v.Name)
			}
		}
	})
}

func TestParsePorts(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []int
	}{
		{
			"config ports dedupe with variable defaults",
			`{
				"config": {"ports": [25565]},
				"variables": [{"env_variable": "SERVER_PORT", "default_value": "25565", "required": true}]
			}`,
			[]int{25565},
		},
		{
			"scalar config port",
			`{"config": {"port": 8080}}`,
			[]int{8080},
		},
		{
			"top level ports and string digits",
			`{"ports": ["80", 443, "abc", -1]}`,
			[]int{80, 443},
		},
		{
			"variable env must mention PORT",
			`{"variables": [
				{"env_variable": "QUERY_PORT", "default_value": "27016"},
				{"env_variable": "MAX_PLAYERS", "default_value": "32"}
			]}`,
			[]int{27016},
		},
		{
			"non-numeric defaults ignored",
			`{"variables": [{"env_variable": "SERVER_PORT", "default_value": "{{SERVER_PORT}}"}]}`,
			nil,
		},
		{
			"union across all sources sorted",
			`{
				"config": {"ports": [27015]},
				"ports": [8080],
				"variables": [{"env_variable": "GAME_PORT", "default_value": "25565"}]
			}`,
			[]int{8080, 25565, 27015},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Parse(decode(t, tt.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(e.Ports) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(e.Ports, tt.want) {
				t.Errorf("ports = %v, want %v", e.Ports, tt.want)
			}
		})
	}
}

func TestParseInstallation(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		e, err := Parse(decode(t, `{"scripts": {"installation": {
			"script": "line1\r\nline2",
			"container": "alpine:3.18",
			"entrypoint": "bash"
		}}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.InstallScript == nil || *e.InstallScript != "line1\nline2" {
			t.Errorf("script = %v, want CRLF normalized", e.InstallScript)
		}
		if e.InstallImage == nil || *e.InstallImage != "alpine:3.18" {
			t.Errorf("image = %v", e.InstallImage)
		}
		if e.InstallEntrypoint == nil || *e.InstallEntrypoint != "bash" {
			t.Errorf("entrypoint = %v", e.InstallEntrypoint)
		}
	})

	t.Run("absent", func(t *testing.T) {
		e, err := Parse(decode(t, `{"scripts": "nope"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.InstallScript != nil || e.InstallImage != nil || e.InstallEntrypoint != nil {
			t.Error("expected all installation fields absent")
		}
	})

	t.Run("script without container drops the installer", func(t *testing.T) {
		e, err := Parse(decode(t, `{"scripts": {"installation": {"script": "echo hi"}}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.InstallScript != nil || e.InstallImage != nil {
			t.Errorf("script = %v, image = %v, want both absent", e.InstallScript, e.InstallImage)
		}
	})
}

func TestImageListJSONOrder(t *testing.T) {
	original := ImageList{{Label: "z-last", Ref: "img:z"}, {Label: "a-first", Ref: "img:a"}}
	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"z-last":"img:z","a-first":"img:a"}` {
		t.Errorf("marshaled = %s", raw)
	}

	var decoded ImageList
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(decoded, original) {
		t.Errorf("round trip lost order: %v", decoded)
	}
}

func TestParseRoundTrip(t *testing.T) {
	original := &Egg{
		Name:         strPtr("Round Trip"),
		Startup:      strPtr("./run {{SERVER_PORT}}"),
		DockerImages: ImageList{{Label: "default", Ref: "img:1"}, {Label: "java21", Ref: "img:2"}},
		Variables: []Variable{
			{Name: "Server Port", EnvVariable: strPtr("SERVER_PORT"), DefaultValue: strPtr("25565"), Required: true},
			{Name: "Motd", EnvVariable: strPtr("MOTD"), Description: strPtr("message of the day"), Required: false},
		},
		Ports: []int{25565},
	}

	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := Parse(decode(t, string(raw)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if !reflect.DeepEqual(parsed.DockerImages, original.DockerImages) {
		t.Errorf("docker_images did not round-trip: %v", parsed.DockerImages)
	}
	if !reflect.DeepEqual(parsed.Variables, original.Variables) {
		t.Errorf("variables did not round-trip: %v", parsed.Variables)
	}
	if !reflect.DeepEqual(parsed.Ports, original.Ports) {
		t.Errorf("ports did not round-trip: %v", parsed.Ports)
	}
}
