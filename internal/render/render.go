// Package render turns a validated deployment configuration into the full
// set of Kubernetes manifest documents. Rendering is a pure function: it
// performs no I/O, never mutates its input, and identical configurations
// produce identical output.
package render

import (
	"strconv"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/NickMagic25/kubeegg/internal/config"
	"github.com/NickMagic25/kubeegg/internal/naming"
)

const (
	managedByLabel  = "kubeegg"
	serverMemoryVar = "{{SERVER_MEMORY}}"

	componentGame        = "game"
	componentFileManager = "file-manager"
	componentInstaller   = "installer"
)

// File pairs an output filename with its manifest document. The renderer
// returns files in a fixed, guaranteed order.
type File struct {
	Name   string
	Object any
}

// All renders every manifest for a configuration. secretFilename names the
// Secret document so callers can route it to a sops-managed file.
func All(cfg *config.UserConfig, secretFilename string) []File {
	configData, secretEnv := splitEnv(cfg.Env)
	if cfg.StartupCommand != "" {
		configData["STARTUP"] = substituteStartup(cfg)
	}

	secretData := map[string]string{
		"FB_USERNAME": cfg.FileManager.Username,
		"FB_PASSWORD": cfg.FileManager.Password,
	}
	sensitiveKeys := make([]string, 0, len(secretEnv))
	for _, item := range cfg.Env {
		if item.Sensitive {
			secretData[item.Key] = item.Value
			sensitiveKeys = append(sensitiveKeys, item.Key)
		}
	}

	files := []File{
		{"namespace.yaml", renderNamespace(cfg)},
		{"pvc.yaml", renderPVC(cfg)},
		{"fm-config-pvc.yaml", renderFileManagerConfigPVC(cfg)},
	}
	if len(configData) > 0 {
		files = append(files, File{"configmap.yaml", renderConfigMap(cfg, configData)})
	}
	files = append(files, File{secretFilename, renderSecret(cfg, secretData)})
	if cfg.Install != nil {
		files = append(files,
			File{"installer-configmap.yaml", renderInstallerConfigMap(cfg)},
			File{"installer-job.yaml", renderInstallerJob(cfg, len(configData) > 0)},
		)
	}
	files = append(files,
		File{"deployment.yaml", renderDeployment(cfg, len(configData) > 0, sensitiveKeys)},
		File{"ftp-deployment.yaml", renderFileManagerDeployment(cfg)},
	)
	if len(cfg.Ports) > 0 {
		files = append(files, File{"service.yaml", renderService(cfg)})
	}
	files = append(files, File{"ftp-service.yaml", renderFileManagerService(cfg)})
	return files
}

// splitEnv partitions operator env selections into plaintext config data
// and secret data keys.
func splitEnv(env []config.EnvSelection) (map[string]string, map[string]string) {
	configData := make(map[string]string)
	secretData := make(map[string]string)
	for _, item := range env {
		if item.Sensitive {
			secretData[item.Key] = item.Value
		} else {
			configData[item.Key] = item.Value
		}
	}
	return configData, secretData
}

// substituteStartup resolves the {{SERVER_MEMORY}} placeholder against the
// configured memory limit, in megabytes.
func substituteStartup(cfg *config.UserConfig) string {
	startup := cfg.StartupCommand
	if !strings.Contains(startup, serverMemoryVar) {
		return startup
	}
	if cfg.Resources == nil || cfg.Resources.LimitsMemory == "" {
		return startup
	}
	mb, ok := naming.MemoryQuantityMB(cfg.Resources.LimitsMemory)
	if !ok || mb == 0 {
		return startup
	}
	return strings.ReplaceAll(startup, serverMemoryVar, strconv.Itoa(mb))
}

func labels(appName, component string) map[string]string {
	l := map[string]string{
		"app.kubernetes.io/name":       appName,
		"app.kubernetes.io/managed-by": managedByLabel,
	}
	if component != "" {
		l["app.kubernetes.io/component"] = component
	}
	return l
}

func selectorLabels(appName, component string) map[string]string {
	return map[string]string{
		"app.kubernetes.io/name":      appName,
		"app.kubernetes.io/component": component,
	}
}

func configMapName(cfg *config.UserConfig) string { return cfg.AppName + "-config" }
func secretName(cfg *config.UserConfig) string    { return cfg.AppName + "-secret" }

func renderNamespace(cfg *config.UserConfig) *corev1.Namespace {
	return &corev1.Namespace{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Namespace"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   cfg.Namespace,
			Labels: labels(cfg.AppName, ""),
		},
	}
}

func renderPVC(cfg *config.UserConfig) *corev1.PersistentVolumeClaim {
	accessModes := make([]corev1.PersistentVolumeAccessMode, 0, len(cfg.PVC.AccessModes))
	for _, mode := range cfg.PVC.AccessModes {
		accessModes = append(accessModes, corev1.PersistentVolumeAccessMode(mode))
	}
	spec := corev1.PersistentVolumeClaimSpec{
		AccessModes: accessModes,
		Resources: corev1.VolumeResourceRequirements{
			Requests: corev1.ResourceList{
				corev1.ResourceStorage: resource.MustParse(cfg.PVC.Size),
			},
		},
	}
	if cfg.PVC.StorageClassName != "" {
		spec.StorageClassName = ptr.To(cfg.PVC.StorageClassName)
	}
	return &corev1.PersistentVolumeClaim{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "PersistentVolumeClaim"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.PVC.Name,
			Namespace: cfg.Namespace,
			Labels:    labels(cfg.AppName, ""),
		},
		Spec: spec,
	}
}

// renderFileManagerConfigPVC is the small dedicated volume holding the file
// manager's own state, separate from the game data volume.
func renderFileManagerConfigPVC(cfg *config.UserConfig) *corev1.PersistentVolumeClaim {
	spec := corev1.PersistentVolumeClaimSpec{
		AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
		Resources: corev1.VolumeResourceRequirements{
			Requests: corev1.ResourceList{
				corev1.ResourceStorage: resource.MustParse("1Gi"),
			},
		},
	}
	if cfg.PVC.StorageClassName != "" {
		spec.StorageClassName = ptr.To(cfg.PVC.StorageClassName)
	}
	return &corev1.PersistentVolumeClaim{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "PersistentVolumeClaim"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.AppName + "-fm-config",
			Namespace: cfg.Namespace,
			Labels:    labels(cfg.AppName, componentFileManager),
		},
		Spec: spec,
	}
}

func renderConfigMap(cfg *config.UserConfig, data map[string]string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      configMapName(cfg),
			Namespace: cfg.Namespace,
			Labels:    labels(cfg.AppName, ""),
		},
		Data: data,
	}
}

func renderSecret(cfg *config.UserConfig, data map[string]string) *corev1.Secret {
	return &corev1.Secret{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      secretName(cfg),
			Namespace: cfg.Namespace,
			Labels:    labels(cfg.AppName, ""),
		},
		Type:       corev1.SecretTypeOpaque,
		StringData: data,
	}
}

func containerSecurityContext() *corev1.SecurityContext {
	return &corev1.SecurityContext{
		AllowPrivilegeEscalation: ptr.To(false),
		Capabilities: &corev1.Capabilities{
			Drop: []corev1.Capability{"ALL"},
		},
	}
}

func resourcesBlock(cfg *config.UserConfig) corev1.ResourceRequirements {
	block := corev1.ResourceRequirements{}
	if cfg.Resources == nil {
		return block
	}
	requests := corev1.ResourceList{}
	limits := corev1.ResourceList{}
	if cfg.Resources.RequestsCPU != "" {
		requests[corev1.ResourceCPU] = resource.MustParse(cfg.Resources.RequestsCPU)
	}
	if cfg.Resources.RequestsMemory != "" {
		requests[corev1.ResourceMemory] = resource.MustParse(cfg.Resources.RequestsMemory)
	}
	if cfg.Resources.LimitsCPU != "" {
		limits[corev1.ResourceCPU] = resource.MustParse(cfg.Resources.LimitsCPU)
	}
	if cfg.Resources.LimitsMemory != "" {
		limits[corev1.ResourceMemory] = resource.MustParse(cfg.Resources.LimitsMemory)
	}
	if len(requests) > 0 {
		block.Requests = requests
	}
	if len(limits) > 0 {
		block.Limits = limits
	}
	return block
}

func renderDeployment(cfg *config.UserConfig, hasConfigMap bool, sensitiveKeys []string) *appsv1.Deployment {
	podLabels := labels(cfg.AppName, componentGame)

	container := corev1.Container{
		Name:  "app",
		Image: cfg.Image,
		VolumeMounts: []corev1.VolumeMount{
			{Name: "data", MountPath: cfg.PVC.MountPath},
		},
		SecurityContext: containerSecurityContext(),
		Resources:       resourcesBlock(cfg),
	}
	for _, port := range cfg.Ports {
		container.Ports = append(container.Ports, corev1.ContainerPort{
			Name:          port.Name,
			ContainerPort: int32(port.ContainerPort),
			Protocol:      corev1.Protocol(port.Protocol),
		})
	}
	// Sensitive values are injected one key at a time instead of a bulk
	// secretRef so the pod never sees unrelated secret keys.
	for _, key := range sensitiveKeys {
		container.Env = append(container.Env, corev1.EnvVar{
			Name: key,
			ValueFrom: &corev1.EnvVarSource{
				SecretKeyRef: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: secretName(cfg)},
					Key:                  key,
				},
			},
		})
	}
	if hasConfigMap {
		container.EnvFrom = []corev1.EnvFromSource{
			{ConfigMapRef: &corev1.ConfigMapEnvSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: configMapName(cfg)},
			}},
		}
	}

	podSpec := corev1.PodSpec{
		SecurityContext: &corev1.PodSecurityContext{
			SeccompProfile: &corev1.SeccompProfile{Type: corev1.SeccompProfileTypeRuntimeDefault},
		},
		Containers: []corev1.Container{container},
		Volumes: []corev1.Volume{
			{
				Name: "data",
				VolumeSource: corev1.VolumeSource{
					PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
						ClaimName: cfg.PVC.Name,
					},
				},
			},
		},
	}
	if cfg.Install != nil {
		podSpec.InitContainers = []corev1.Container{waitForInstallContainer(cfg)}
	}

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.AppName,
			Namespace: cfg.Namespace,
			Labels:    podLabels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(int32(1)),
			Selector: &metav1.LabelSelector{
				MatchLabels: selectorLabels(cfg.AppName, componentGame),
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: podLabels},
				Spec:       podSpec,
			},
		},
	}
}

func renderFileManagerDeployment(cfg *config.UserConfig) *appsv1.Deployment {
	podLabels := labels(cfg.AppName, componentFileManager)
	fm := cfg.FileManager

	secretEnv := func(name, key string) corev1.EnvVar {
		return corev1.EnvVar{
			Name: name,
			ValueFrom: &corev1.EnvVarSource{
				SecretKeyRef: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: secretName(cfg)},
					Key:                  key,
				},
			},
		}
	}

	container := corev1.Container{
		Name:  "file-manager",
		Image: fm.Image,
		Env: []corev1.EnvVar{
			secretEnv("FB_USERNAME", "FB_USERNAME"),
			secretEnv("FB_PASSWORD", "FB_PASSWORD"),
			{Name: "FB_ROOT", Value: "/data"},
			{Name: "FB_ADDRESS", Value: "0.0.0.0"},
			{Name: "FB_PORT", Value: strconv.Itoa(fm.Port)},
			{Name: "FB_DATABASE", Value: "/config/filebrowser.db"},
		},
		Ports: []corev1.ContainerPort{
			{
				Name:          naming.PortName("file-ui"),
				ContainerPort: int32(fm.Port),
				Protocol:      corev1.ProtocolTCP,
			},
		},
		VolumeMounts: []corev1.VolumeMount{
			{Name: "data", MountPath: "/data"},
			{Name: "config", MountPath: "/config"},
		},
		SecurityContext: &corev1.SecurityContext{
			AllowPrivilegeEscalation: ptr.To(false),
			Capabilities:             &corev1.Capabilities{Drop: []corev1.Capability{"ALL"}},
			RunAsNonRoot:             ptr.To(true),
		},
	}

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.AppName + "-ftp",
			Namespace: cfg.Namespace,
			Labels:    podLabels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(int32(1)),
			Selector: &metav1.LabelSelector{
				MatchLabels: selectorLabels(cfg.AppName, componentFileManager),
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: podLabels},
				Spec: corev1.PodSpec{
					SecurityContext: &corev1.PodSecurityContext{
						SeccompProfile: &corev1.SeccompProfile{Type: corev1.SeccompProfileTypeRuntimeDefault},
						RunAsNonRoot:   ptr.To(true),
						RunAsUser:      ptr.To(int64(1000)),
						RunAsGroup:     ptr.To(int64(1000)),
						FSGroup:        ptr.To(int64(1000)),
					},
					Containers: []corev1.Container{container},
					Volumes: []corev1.Volume{
						{
							Name: "data",
							VolumeSource: corev1.VolumeSource{
								PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
									ClaimName: cfg.PVC.Name,
								},
							},
						},
						{
							Name: "config",
							VolumeSource: corev1.VolumeSource{
								PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
									ClaimName: cfg.AppName + "-fm-config",
								},
							},
						},
					},
				},
			},
		},
	}
}

func renderService(cfg *config.UserConfig) *corev1.Service {
	ports := make([]corev1.ServicePort, 0, len(cfg.Ports))
	for _, port := range cfg.Ports {
		ports = append(ports, corev1.ServicePort{
			Name:       port.Name,
			Port:       int32(port.ContainerPort),
			TargetPort: intstr.FromInt32(int32(port.ContainerPort)),
			Protocol:   corev1.Protocol(port.Protocol),
		})
	}
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.AppName,
			Namespace: cfg.Namespace,
			Labels:    labels(cfg.AppName, componentGame),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: selectorLabels(cfg.AppName, componentGame),
			Ports:    ports,
		},
	}
}

func renderFileManagerService(cfg *config.UserConfig) *corev1.Service {
	port := int32(cfg.FileManager.Port)
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.AppName + "-ftp",
			Namespace: cfg.Namespace,
			Labels:    labels(cfg.AppName, componentFileManager),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: selectorLabels(cfg.AppName, componentFileManager),
			Ports: []corev1.ServicePort{
				{
					Name:       naming.PortName("file-ui"),
					Port:       port,
					TargetPort: intstr.FromInt32(port),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}
}
