// Package egg parses game-server package descriptors ("eggs") into a
// normalized model. Egg JSON is authored by many different communities and
// several historical key-naming conventions are in circulation, so the
// parser is deliberately tolerant: absent or wrong-typed fields degrade to
// absent rather than failing. Only a non-object top-level document is a
// hard error.
package egg

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// ParseError reports an egg document that cannot be interpreted at all.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parsing egg: " + e.Reason
}

// Variable is one configurable value declared by the egg.
type Variable struct {
	Name         string  `json:"name"`
	EnvVariable  *string `json:"env_variable"`
	Description  *string `json:"description"`
	DefaultValue *string `json:"default_value"`
	Required     bool    `json:"required"`
}

// ImageOption is one labelled container image choice.
type ImageOption struct {
	Label string
	Ref   string
}

// ImageList is an ordered label-to-image mapping. It serializes as a JSON
// object in list order.
type ImageList []ImageOption

// Lookup returns the image for a label.
func (l ImageList) Lookup(label string) (string, bool) {
	for _, opt := range l {
		if opt.Label == label {
			return opt.Ref, true
		}
	}
	return "", false
}

func (l ImageList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, opt := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(opt.Label)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(opt.Ref)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object form back, preserving document order.
func (l *ImageList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	var out ImageList
	for dec.More() {
		keyToken, err := dec.Token()
		if err != nil {
			return err
		}
		label, _ := keyToken.(string)
		var ref string
		if err := dec.Decode(&ref); err != nil {
			return err
		}
		out = append(out, ImageOption{Label: label, Ref: ref})
	}
	*l = out
	return nil
}

// Egg is the normalized descriptor model.
type Egg struct {
	Name              *string    `json:"name"`
	Description       *string    `json:"description"`
	Startup           *string    `json:"startup"`
	DockerImages      ImageList  `json:"docker_images"`
	Variables         []Variable `json:"variables"`
	Ports             []int      `json:"ports"`
	InstallScript     *string    `json:"install_script"`
	InstallImage      *string    `json:"install_image"`
	InstallEntrypoint *string    `json:"install_entrypoint"`
}

// Parse converts a decoded JSON document into an Egg. The document must be
// a JSON object; everything below the top level degrades gracefully.
func Parse(data any) (*Egg, error) {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, &ParseError{Reason: "egg document is not an object"}
	}

	e := &Egg{
		Name:         firstTruthyString(obj, "name", "title"),
		Description:  stringField(obj, "description"),
		Startup:      stringField(obj, "startup"),
		DockerImages: extractImages(obj),
		Variables:    extractVariables(obj),
	}
	e.Ports = extractPorts(obj, e.Variables)
	e.InstallScript, e.InstallImage, e.InstallEntrypoint = extractInstallation(obj)
	return e, nil
}

// toString coerces a scalar JSON value to a string.
func toString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10), true
		}
		return strconv.FormatFloat(val, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

func truthy(v any) bool {
	switch val := v.(type) {
	case string:
		return val != ""
	case float64:
		return val != 0
	case bool:
		return val
	case map[string]any:
		return len(val) > 0
	case []any:
		return len(val) > 0
	default:
		return false
	}
}

// firstTruthyString tries candidate keys in priority order and returns the
// first present, truthy value coerced to a string.
func firstTruthyString(obj map[string]any, keys ...string) *string {
	for _, key := range keys {
		v, present := obj[key]
		if !present || !truthy(v) {
			continue
		}
		if s, ok := toString(v); ok {
			return &s
		}
	}
	return nil
}

// stringField coerces a present, non-null value to a string, keeping empty
// strings.
func stringField(obj map[string]any, key string) *string {
	v, present := obj[key]
	if !present || v == nil {
		return nil
	}
	if s, ok := toString(v); ok {
		return &s
	}
	return nil
}

func extractImages(obj map[string]any) ImageList {
	var images ImageList

	var raw any
	for _, key := range []string{"docker_images", "dockerImages"} {
		if v, present := obj[key]; present && truthy(v) {
			raw = v
			break
		}
	}
	switch val := raw.(type) {
	case map[string]any:
		labels := make([]string, 0, len(val))
		for label := range val {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			if !truthy(val[label]) {
				continue
			}
			if ref, ok := toString(val[label]); ok {
				images = append(images, ImageOption{Label: label, Ref: ref})
			}
		}
	case []any:
		for i, item := range val {
			ref, ok := item.(string)
			if !ok || ref == "" {
				continue
			}
			images = append(images, ImageOption{
				Label: "image-" + strconv.Itoa(i+1),
				Ref:   ref,
			})
		}
	}

	// A bare top-level image never overwrites an explicit "default" entry.
	for _, key := range []string{"docker_image", "dockerImage", "image"} {
		ref, ok := obj[key].(string)
		if !ok || ref == "" {
			continue
		}
		if _, taken := images.Lookup("default"); !taken {
			images = append(images, ImageOption{Label: "default", Ref: ref})
		}
		break
	}
	return images
}

func asBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "yes", "1":
			return true
		}
		return false
	case float64:
		return val != 0
	default:
		return false
	}
}

func extractVariables(obj map[string]any) []Variable {
	var variables []Variable

	rawVars, isList := obj["variables"].([]any)
	if isList {
		for _, rawItem := range rawVars {
			item, ok := rawItem.(map[string]any)
			if !ok {
				continue
			}
			envVariable := firstTruthyString(item, "env_variable", "envVariable")

			name := ""
			if n := firstTruthyString(item, "name", "env_variable", "envVariable"); n != nil {
				name = *n
			}
			if name == "" && envVariable != nil {
				name = *envVariable
			}

			defaultValue := stringField(item, "default_value")
			if defaultValue == nil {
				defaultValue = stringField(item, "default")
			}

			required := false
			for _, key := range []string{"required", "is_required"} {
				if v, present := item[key]; present {
					required = asBool(v)
					break
				}
			}

			variables = append(variables, Variable{
				Name:         name,
				EnvVariable:  envVariable,
				Description:  stringField(item, "description"),
				DefaultValue: defaultValue,
				Required:     required,
			})
		}
		return variables
	}

	if environment, ok := obj["environment"].(map[string]any); ok {
		keys := make([]string, 0, len(environment))
		for key := range environment {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			key := key
			variables = append(variables, Variable{
				Name:         key,
				EnvVariable:  &key,
				DefaultValue: stringField(environment, key),
				Required:     false,
			})
		}
	}
	return variables
}

func extractPorts(obj map[string]any, variables []Variable) []int {
	seen := make(map[int]struct{})
	add := func(v any) {
		switch val := v.(type) {
		case float64:
			if val == float64(int64(val)) && val >= 1 && val <= 65535 {
				seen[int(val)] = struct{}{}
			}
		case string:
			text := strings.TrimSpace(val)
			if !isDigits(text) {
				return
			}
			port, err := strconv.Atoi(text)
			if err == nil && port >= 1 && port <= 65535 {
				seen[port] = struct{}{}
			}
		}
	}

	if config, ok := obj["config"].(map[string]any); ok {
		var raw any
		for _, key := range []string{"ports", "port"} {
			if v, present := config[key]; present && truthy(v) {
				raw = v
				break
			}
		}
		if list, ok := raw.([]any); ok {
			for _, item := range list {
				add(item)
			}
		} else {
			add(raw)
		}
	}

	if list, ok := obj["ports"].([]any); ok {
		for _, item := range list {
			add(item)
		}
	}

	for _, v := range variables {
		if v.EnvVariable == nil || v.DefaultValue == nil {
			continue
		}
		if !strings.Contains(strings.ToUpper(*v.EnvVariable), "PORT") {
			continue
		}
		add(*v.DefaultValue)
	}

	ports := make([]int, 0, len(seen))
	for port := range seen {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	return ports
}

func extractInstallation(obj map[string]any) (script, image, entrypoint *string) {
	scripts, ok := obj["scripts"].(map[string]any)
	if !ok {
		return nil, nil, nil
	}
	installation, ok := scripts["installation"].(map[string]any)
	if !ok {
		return nil, nil, nil
	}
	if raw, ok := installation["script"].(string); ok {
		normalized := strings.ReplaceAll(raw, "\r\n", "\n")
		script = &normalized
	}
	image = firstTruthyString(installation, "container")
	entrypoint = firstTruthyString(installation, "entrypoint")

	// An install step needs both a script and an execution image; a block
	// missing either degrades to no installer at all.
	if script == nil || image == nil {
		return nil, nil, nil
	}
	return script, image, entrypoint
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
