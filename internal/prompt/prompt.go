// Package prompt walks an operator through the questions needed to turn a
// parsed egg into a complete deployment configuration.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/NickMagic25/kubeegg/internal/config"
	"github.com/NickMagic25/kubeegg/internal/egg"
	"github.com/NickMagic25/kubeegg/internal/naming"
)

const (
	defaultFileManagerImage = "hurlenko/filebrowser:latest"
	defaultFileManagerPort  = 8080
	defaultMountPath        = "/home/container"
	defaultInstallImage     = "debian:bookworm-slim"
)

// sensitiveMarkers flag env keys whose values belong in the Secret.
var sensitiveMarkers = []string{"PASS", "SECRET", "TOKEN", "KEY"}

// forceSecretKeys always land in the Secret regardless of the marker scan.
var forceSecretKeys = map[string]struct{}{
	"FTP_USERNAME": {},
	"FTP_PASSWORD": {},
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *prompter) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// ask reads one line, returning the fallback when the answer is empty.
func (p *prompter) ask(question, fallback string) (string, error) {
	if fallback != "" {
		p.printf("%s [%s]: ", question, fallback)
	} else {
		p.printf("%s: ", question)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback, nil
	}
	return line, nil
}

func (p *prompter) askYesNo(question string, fallback bool) (bool, error) {
	hint := "y/N"
	if fallback {
		hint = "Y/n"
	}
	answer, err := p.ask(fmt.Sprintf("%s (%s)", question, hint), "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "":
		return fallback, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Collect runs the interactive flow against in/out and returns a validated
// configuration.
func Collect(e *egg.Egg, in io.Reader, out io.Writer) (*config.UserConfig, error) {
	p := &prompter{in: bufio.NewReader(in), out: out}
	cfg := &config.UserConfig{}

	if e.Description != nil && *e.Description != "" {
		p.printf("%s\n\n", *e.Description)
	}

	if err := p.collectIdentity(e, cfg); err != nil {
		return nil, err
	}
	if err := p.collectImage(e, cfg); err != nil {
		return nil, err
	}
	if err := p.collectStorage(cfg); err != nil {
		return nil, err
	}
	if err := p.collectEnv(e, cfg); err != nil {
		return nil, err
	}
	if err := p.collectStartup(e, cfg); err != nil {
		return nil, err
	}
	if err := p.collectPorts(e, cfg); err != nil {
		return nil, err
	}
	if err := p.collectFileManager(cfg); err != nil {
		return nil, err
	}
	if err := p.collectInstaller(e, cfg); err != nil {
		return nil, err
	}
	if err := p.collectResources(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *prompter) collectIdentity(e *egg.Egg, cfg *config.UserConfig) error {
	suggested := "app"
	if e.Name != nil {
		suggested = naming.ResourceName(*e.Name)
	}
	name, err := p.ask("Application name", suggested)
	if err != nil {
		return err
	}
	cfg.AppName = naming.ResourceName(name)

	namespace, err := p.ask("Namespace", cfg.AppName)
	if err != nil {
		return err
	}
	cfg.Namespace = naming.ResourceName(namespace)
	return nil
}

func (p *prompter) collectImage(e *egg.Egg, cfg *config.UserConfig) error {
	images := e.DockerImages
	if len(images) == 0 {
		image, err := p.ask("Container image", "")
		if err != nil {
			return err
		}
		cfg.Image = image
		return nil
	}

	if len(images) == 1 {
		image, err := p.ask("Container image", images[0].Ref)
		if err != nil {
			return err
		}
		cfg.Image = image
		return nil
	}

	p.printf("Available images:\n")
	for i, opt := range images {
		p.printf("  %d) %s (%s)\n", i+1, opt.Label, opt.Ref)
	}
	fallback := "1"
	if ref, ok := images.Lookup("default"); ok {
		for i, opt := range images {
			if opt.Ref == ref && opt.Label == "default" {
				fallback = strconv.Itoa(i + 1)
				break
			}
		}
	}
	answer, err := p.ask("Select an image by number, or enter a custom image", fallback)
	if err != nil {
		return err
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(images) {
		cfg.Image = images[n-1].Ref
		return nil
	}
	if ref, ok := images.Lookup(answer); ok {
		cfg.Image = ref
		return nil
	}
	cfg.Image = answer
	return nil
}

func (p *prompter) collectStorage(cfg *config.UserConfig) error {
	sizeGB, err := p.ask("Persistent volume size in GB", "10")
	if err != nil {
		return err
	}
	size := strings.TrimSpace(sizeGB)
	if _, convErr := strconv.ParseFloat(size, 64); convErr == nil {
		size += "Gi"
	}

	storageClass, err := p.ask("Storage class (empty for cluster default)", "")
	if err != nil {
		return err
	}

	// The game server and the file manager mount the same volume, so the
	// default access mode has to allow both pods.
	cfg.PVC = config.PVCSpec{
		Name:             cfg.AppName + "-data",
		Size:             size,
		MountPath:        defaultMountPath,
		AccessModes:      []string{"ReadWriteMany"},
		StorageClassName: storageClass,
	}

	mount, err := p.ask("Mount path inside the container", defaultMountPath)
	if err != nil {
		return err
	}
	cfg.PVC.MountPath = mount
	return nil
}

func isSensitiveKey(key string) bool {
	if _, forced := forceSecretKeys[key]; forced {
		return true
	}
	for _, marker := range sensitiveMarkers {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

func (p *prompter) collectEnv(e *egg.Egg, cfg *config.UserConfig) error {
	if len(e.Variables) > 0 {
		p.printf("\nEnvironment variables:\n")
	}
	seen := make(map[string]struct{})
	for _, v := range e.Variables {
		key := v.Name
		if v.EnvVariable != nil && *v.EnvVariable != "" {
			key = *v.EnvVariable
		}
		key = naming.EnvVar(key)
		if _, dup := seen[key]; dup {
			continue
		}

		if v.Description != nil && *v.Description != "" {
			p.printf("%s\n", *v.Description)
		}
		fallback := ""
		if v.DefaultValue != nil {
			fallback = *v.DefaultValue
		}
		value, err := p.ask(key, fallback)
		if err != nil {
			return err
		}
		if value == "" && !v.Required {
			continue
		}

		seen[key] = struct{}{}
		cfg.Env = append(cfg.Env, config.EnvSelection{
			Key:       key,
			Value:     value,
			Sensitive: isSensitiveKey(key),
		})
	}
	return nil
}

func (p *prompter) collectStartup(e *egg.Egg, cfg *config.UserConfig) error {
	fallback := ""
	if e.Startup != nil {
		fallback = *e.Startup
	}
	startup, err := p.ask("Startup command", fallback)
	if err != nil {
		return err
	}
	cfg.StartupCommand = startup

	provided := make(map[string]struct{}, len(cfg.Env))
	for _, item := range cfg.Env {
		provided[item.Key] = struct{}{}
	}
	for _, name := range naming.StartupVars(startup) {
		if _, builtin := naming.BuiltinStartupVars[name]; builtin {
			continue
		}
		if _, ok := provided[name]; ok {
			continue
		}
		value, err := p.ask("Value for startup variable "+name, "")
		if err != nil {
			return err
		}
		if value == "" {
			continue
		}
		provided[name] = struct{}{}
		cfg.Env = append(cfg.Env, config.EnvSelection{
			Key:       name,
			Value:     value,
			Sensitive: isSensitiveKey(name),
		})
	}
	return nil
}

// portEnvName finds the env key whose value matches a port so the service
// port can carry a meaningful name.
func portEnvName(cfg *config.UserConfig, port int) string {
	want := strconv.Itoa(port)
	for _, item := range cfg.Env {
		if item.Value == want && strings.Contains(item.Key, "PORT") {
			return naming.PortName(item.Key)
		}
	}
	return naming.PortName(fmt.Sprintf("game-%d", port))
}

func (p *prompter) collectPorts(e *egg.Egg, cfg *config.UserConfig) error {
	parts := make([]string, 0, len(e.Ports))
	for _, port := range e.Ports {
		parts = append(parts, strconv.Itoa(port))
	}
	for _, item := range cfg.Env {
		if !strings.Contains(item.Key, "PORT") {
			continue
		}
		if port, err := strconv.Atoi(item.Value); err == nil && port >= 1 && port <= 65535 {
			parts = append(parts, item.Value)
		}
	}
	detected := naming.ParsePortList(strings.Join(parts, ","))

	fallback := ""
	if len(detected) > 0 {
		list := make([]string, len(detected))
		for i, port := range detected {
			list[i] = strconv.Itoa(port)
		}
		fallback = strings.Join(list, ", ")
	}
	answer, err := p.ask("Ports to expose (comma separated, ranges allowed)", fallback)
	if err != nil {
		return err
	}
	ports := naming.ParsePortList(answer)
	if len(ports) == 0 {
		return nil
	}

	protocol, err := p.ask("Protocol for exposed ports (TCP/UDP)", "TCP")
	if err != nil {
		return err
	}
	protocol = strings.ToUpper(strings.TrimSpace(protocol))

	for _, port := range ports {
		cfg.Ports = append(cfg.Ports, config.PortSpec{
			ContainerPort: port,
			Protocol:      protocol,
			Name:          portEnvName(cfg, port),
		})
	}
	return nil
}

func (p *prompter) collectFileManager(cfg *config.UserConfig) error {
	p.printf("\nFile manager:\n")
	image, err := p.ask("File manager image", defaultFileManagerImage)
	if err != nil {
		return err
	}
	username, err := p.ask("File manager username", "admin")
	if err != nil {
		return err
	}
	password, err := p.ask("File manager password", naming.GeneratePassword(16))
	if err != nil {
		return err
	}

	cfg.FileManager = config.FileManagerConfig{
		Image:    image,
		Username: username,
		Password: password,
		Port:     defaultFileManagerPort,
	}
	return nil
}

func (p *prompter) collectInstaller(e *egg.Egg, cfg *config.UserConfig) error {
	if e.InstallScript == nil || strings.TrimSpace(*e.InstallScript) == "" {
		return nil
	}
	wanted, err := p.askYesNo("The egg ships an install script. Generate an installer job?", true)
	if err != nil {
		return err
	}
	if !wanted {
		return nil
	}

	imageFallback := defaultInstallImage
	if e.InstallImage != nil && *e.InstallImage != "" {
		imageFallback = *e.InstallImage
	}
	image, err := p.ask("Installer image", imageFallback)
	if err != nil {
		return err
	}

	entrypoint := ""
	if e.InstallEntrypoint != nil {
		entrypoint = *e.InstallEntrypoint
	}

	cfg.Install = config.NewInstall(image, entrypoint, *e.InstallScript)
	return nil
}

func (p *prompter) collectResources(cfg *config.UserConfig) error {
	memory, err := p.ask("Memory limit in GB (empty for none)", "")
	if err != nil {
		return err
	}
	cpu, err := p.ask("CPU limit in millicores (empty for none)", "")
	if err != nil {
		return err
	}
	if memory == "" && cpu == "" {
		return nil
	}

	values := &config.ResourceValues{}
	if memory != "" {
		if _, convErr := strconv.ParseFloat(memory, 64); convErr == nil {
			memory += "Gi"
		}
		values.LimitsMemory = memory
	}
	if cpu != "" {
		if _, convErr := strconv.Atoi(cpu); convErr == nil {
			cpu += "m"
		}
		values.LimitsCPU = cpu
	}
	cfg.Resources = values
	return nil
}
