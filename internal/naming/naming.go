// Package naming sanitizes free-form egg text into valid Kubernetes
// resource names, environment variable identifiers and port lists.
package naming

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const maxNameLength = 63

var (
	resourceNameRe = regexp.MustCompile(`[^a-z0-9-]+`)
	dashRunRe      = regexp.MustCompile(`-+`)
	envVarRe       = regexp.MustCompile(`[^A-Z0-9_]+`)
	underscoreRe   = regexp.MustCompile(`_+`)
	portSplitRe    = regexp.MustCompile(`[\s,]+`)
	startupVarRe   = regexp.MustCompile(`\{\{([A-Z_][A-Z0-9_]*)\}\}`)
)

// BuiltinStartupVars are placeholders substituted by the renderer itself;
// the configurator must never ask the operator for them.
var BuiltinStartupVars = map[string]struct{}{
	"SERVER_MEMORY": {},
}

// ResourceName turns arbitrary text into a valid DNS-label style resource
// name. Idempotent: ResourceName(ResourceName(x)) == ResourceName(x).
func ResourceName(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	v = resourceNameRe.ReplaceAllString(v, "-")
	v = dashRunRe.ReplaceAllString(v, "-")
	v = strings.Trim(v, "-")
	if v == "" {
		return "app"
	}
	if len(v) > maxNameLength {
		v = strings.TrimRight(v[:maxNameLength], "-")
	}
	if v == "" {
		return "app"
	}
	if !isLowerAlnum(v[0]) {
		v = "a-" + v
	}
	return v
}

// PortName builds a valid Service port name. Port names additionally must
// not start with a digit.
func PortName(value string) string {
	v := ResourceName(value)
	if v[0] >= '0' && v[0] <= '9' {
		v = "p-" + v
	}
	return v
}

// EnvVar turns arbitrary text into a valid environment variable identifier.
func EnvVar(value string) string {
	v := strings.ToUpper(strings.TrimSpace(value))
	v = envVarRe.ReplaceAllString(v, "_")
	v = underscoreRe.ReplaceAllString(v, "_")
	v = strings.Trim(v, "_")
	if v == "" {
		return "VAR"
	}
	if v[0] >= '0' && v[0] <= '9' {
		v = "VAR_" + v
	}
	return v
}

// ParsePortList parses a comma or whitespace separated list of ports and
// inclusive start-end ranges into a sorted, deduplicated port list. Tokens
// outside 1-65535 are discarded.
func ParsePortList(text string) []int {
	seen := make(map[int]struct{})
	for _, part := range portSplitRe.Split(strings.TrimSpace(text), -1) {
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			if !isDigits(bounds[0]) || !isDigits(bounds[1]) {
				continue
			}
			start, _ := strconv.Atoi(bounds[0])
			end, _ := strconv.Atoi(bounds[1])
			if start > end {
				start, end = end, start
			}
			for port := start; port <= end; port++ {
				if port >= 1 && port <= 65535 {
					seen[port] = struct{}{}
				}
			}
			continue
		}
		if isDigits(part) {
			port, _ := strconv.Atoi(part)
			if port >= 1 && port <= 65535 {
				seen[port] = struct{}{}
			}
		}
	}
	ports := make([]int, 0, len(seen))
	for port := range seen {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	return ports
}

// ParsePassiveRange parses an FTP-style passive port range such as
// "21000-21010" (or colon separated).
func ParsePassiveRange(text string) (int, int, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), ":", "-")
	if !strings.Contains(cleaned, "-") {
		return 0, 0, fmt.Errorf("passive range must look like 21000-21010")
	}
	bounds := strings.SplitN(cleaned, "-", 2)
	if !isDigits(bounds[0]) || !isDigits(bounds[1]) {
		return 0, 0, fmt.Errorf("passive range must contain only numbers")
	}
	start, _ := strconv.Atoi(bounds[0])
	end, _ := strconv.Atoi(bounds[1])
	if start <= 0 || end <= 0 || start > end {
		return 0, 0, fmt.Errorf("passive range must be positive and start <= end")
	}
	if end > 65535 {
		return 0, 0, fmt.Errorf("passive range must be <= 65535")
	}
	return start, end, nil
}

// StartupVars returns the distinct {{NAME}} placeholders referenced by a
// startup command, sorted.
func StartupVars(command string) []string {
	seen := make(map[string]struct{})
	for _, match := range startupVarRe.FindAllStringSubmatch(command, -1) {
		seen[match[1]] = struct{}{}
	}
	vars := make([]string, 0, len(seen))
	for name := range seen {
		vars = append(vars, name)
	}
	sort.Strings(vars)
	return vars
}

// Unique removes duplicates while preserving first-seen order.
func Unique(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GeneratePassword returns a random alphanumeric credential.
func GeneratePassword(length int) string {
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordAlphabet))))
		if err != nil {
			panic(err)
		}
		b[i] = passwordAlphabet[n.Int64()]
	}
	return string(b)
}

var memorySuffixes = []struct {
	suffix string
	factor float64
}{
	{"gib", 1024}, {"gi", 1024},
	{"gb", 1000}, {"g", 1000},
	{"mib", 1}, {"mi", 1},
	{"mb", 1}, {"m", 1},
}

// MemoryQuantityMB converts a memory quantity string such as "6Gi" or
// "512M" to megabytes. The second return value reports whether the input
// was parseable.
func MemoryQuantityMB(text string) (int, bool) {
	raw := strings.ToLower(strings.TrimSpace(text))
	if raw == "" {
		return 0, false
	}
	factor := 1.0
	for _, unit := range memorySuffixes {
		if strings.HasSuffix(raw, unit.suffix) {
			factor = unit.factor
			raw = strings.TrimSpace(raw[:len(raw)-len(unit.suffix)])
			break
		}
	}
	if !isNumeric(raw) {
		return 0, false
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return int(amount * factor), true
}

func isLowerAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
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

// isNumeric accepts digit strings with at most one decimal point.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	return isDigits(strings.Replace(s, ".", "", 1))
}
