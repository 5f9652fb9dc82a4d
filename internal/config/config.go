// Package config defines the immutable deployment configuration consumed by
// the renderer, and its validation rules.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"k8s.io/apimachinery/pkg/api/resource"
)

// use a single instance, it caches struct info
var (
	uni      *ut.UniversalTranslator
	validate *validator.Validate
)

var (
	k8sNameRe  = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	envKeyRe   = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)
	portNameRe = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)
)

func init() {
	english := en.New()
	uni = ut.New(english, english)
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("k8sname", validateK8sName)
	_ = validate.RegisterValidation("envkey", validateEnvKey)
	_ = validate.RegisterValidation("portname", validatePortName)
	_ = validate.RegisterValidation("quantity", validateQuantity)
}

// EnvSelection is one environment value chosen by the operator. Sensitive
// values are routed to the Secret instead of the ConfigMap.
type EnvSelection struct {
	Key       string `validate:"required,envkey"`
	Value     string
	Sensitive bool
}

// PortSpec is one exposed container port.
type PortSpec struct {
	ContainerPort int    `validate:"min=1,max=65535"`
	Protocol      string `validate:"oneof=TCP UDP"`
	Name          string `validate:"required,portname"`
}

// PVCSpec describes the game data volume.
type PVCSpec struct {
	Name             string   `validate:"required,k8sname"`
	Size             string   `validate:"required,quantity"`
	MountPath        string   `validate:"required"`
	AccessModes      []string `validate:"min=1,dive,oneof=ReadWriteOnce ReadWriteMany ReadOnlyMany ReadWriteOncePod"`
	StorageClassName string   `validate:"omitempty,k8sname"`
}

// FileManagerConfig describes the file-manager sidecar.
type FileManagerConfig struct {
	Image    string `validate:"required"`
	Username string `validate:"required"`
	Password string `validate:"required"`
	Port     int    `validate:"min=1,max=65535"`
}

// InstallConfig describes the one-shot installer job. VersionHash is a
// content fingerprint of Script used as the job's idempotency key.
type InstallConfig struct {
	Image       string `validate:"required"`
	Entrypoint  string
	Script      string `validate:"required"`
	VersionHash string `validate:"required,len=8,hexadecimal"`
}

// ResourceValues holds optional CPU/memory requests and limits as
// Kubernetes quantity strings.
type ResourceValues struct {
	RequestsCPU    string `validate:"omitempty,quantity"`
	RequestsMemory string `validate:"omitempty,quantity"`
	LimitsCPU      string `validate:"omitempty,quantity"`
	LimitsMemory   string `validate:"omitempty,quantity"`
}

// UserConfig is the complete set of rendering inputs. It is built once by
// the interactive configurator (or a test) and never mutated afterwards.
type UserConfig struct {
	AppName        string `validate:"required,k8sname"`
	Namespace      string `validate:"required,k8sname"`
	Image          string `validate:"required"`
	PVC            PVCSpec
	Env            []EnvSelection `validate:"dive"`
	Ports          []PortSpec     `validate:"dive"`
	FileManager    FileManagerConfig
	StartupCommand string
	Install        *InstallConfig
	Resources      *ResourceValues
}

// Validate checks every configuration invariant. The renderer assumes a
// validated value and performs no checking of its own.
func (c *UserConfig) Validate() error {
	trans, found := uni.GetTranslator("en")
	if !found {
		return errors.New("failed to find translator")
	}
	registerMessages(trans)

	if err := validate.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		var msg strings.Builder
		for _, fieldErr := range validationErrors {
			msg.WriteString(fieldErr.Translate(trans))
			msg.WriteString("\n")
		}
		return errors.New(strings.TrimSuffix(msg.String(), "\n"))
	}

	seenKeys := make(map[string]struct{}, len(c.Env))
	for _, item := range c.Env {
		if _, dup := seenKeys[item.Key]; dup {
			return fmt.Errorf("duplicate environment variable %q", item.Key)
		}
		seenKeys[item.Key] = struct{}{}
	}

	seenNames := make(map[string]struct{}, len(c.Ports))
	seenPorts := make(map[int]struct{}, len(c.Ports))
	for _, port := range c.Ports {
		if _, dup := seenNames[port.Name]; dup {
			return fmt.Errorf("duplicate port name %q", port.Name)
		}
		seenNames[port.Name] = struct{}{}
		if _, dup := seenPorts[port.ContainerPort]; dup {
			return fmt.Errorf("duplicate container port %d", port.ContainerPort)
		}
		seenPorts[port.ContainerPort] = struct{}{}
	}

	return nil
}

func registerMessages(trans ut.Translator) {
	register := func(tag, template string) {
		_ = validate.RegisterTranslation(tag, trans, func(ut ut.Translator) error {
			return ut.Add(tag, template, true)
		}, func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fieldPath(fe), fmt.Sprintf("%v", fe.Value()), fe.Param())
			return t
		})
	}

	register("required", "{0} is required")
	register("k8sname", "invalid {0} ({1}) - expected a lowercase DNS label of at most 63 characters")
	register("envkey", "invalid {0} ({1}) - expected an identifier of A-Z, 0-9 and _ not starting with a digit")
	register("portname", "invalid {0} ({1}) - expected a DNS label starting with a letter")
	register("quantity", "invalid {0} ({1}) - expected a Kubernetes quantity such as 10Gi or 500m")
	register("oneof", "invalid {0} ({1}) - expected one of: {2}")
	register("min", "invalid {0} ({1}) - below the allowed minimum {2}")
	register("max", "invalid {0} ({1}) - above the allowed maximum {2}")
	register("len", "invalid {0} ({1}) - expected length {2}")
	register("hexadecimal", "invalid {0} ({1}) - expected hex characters only")
}

func fieldPath(fe validator.FieldError) string {
	return strings.TrimPrefix(fe.StructNamespace(), "UserConfig.")
}

func validateK8sName(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	return len(v) <= 63 && k8sNameRe.MatchString(v)
}

func validateEnvKey(fl validator.FieldLevel) bool {
	return envKeyRe.MatchString(fl.Field().String())
}

func validatePortName(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	return len(v) <= 63 && portNameRe.MatchString(v)
}

func validateQuantity(fl validator.FieldLevel) bool {
	_, err := resource.ParseQuantity(fl.Field().String())
	return err == nil
}
