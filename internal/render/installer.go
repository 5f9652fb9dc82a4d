package render

import (
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	"github.com/NickMagic25/kubeegg/internal/config"
)

const (
	installerMountPath = "/kubeegg-installer"
	installerDataPath  = "/mnt/server"

	// waitImage is the utility image for the init container that blocks
	// the app until the installer job has written its marker file.
	waitImage = "busybox:1.36"
)

func installerConfigMapName(cfg *config.UserConfig) string {
	return cfg.AppName + "-installer"
}

// installerJobName is content-addressed by the install script so rerunning
// with an unchanged script reuses the completed job.
func installerJobName(cfg *config.UserConfig) string {
	return fmt.Sprintf("%s-installer-%s", cfg.AppName, cfg.Install.VersionHash)
}

func installMarkerPath(cfg *config.UserConfig) string {
	return fmt.Sprintf("%s/.kubeegg_installed_%s", installerDataPath, cfg.Install.VersionHash)
}

// wrapInstallScript guards the upstream script with a completion marker so
// the job is a no-op when the same script version already ran.
func wrapInstallScript(script, markerPath string) string {
	return fmt.Sprintf(`#!/bin/sh
# set -e is intentionally omitted: egg install scripts use grep and
# friends for condition checks, and a no-match exit code is not a failure.
MARKER=%s
if [ -f "$MARKER" ]; then
  echo "Installer already completed."
  exit 0
fi
%s
touch "$MARKER"`, markerPath, trimScript(script))
}

func trimScript(script string) string {
	for len(script) > 0 && (script[0] == '\n' || script[0] == ' ' || script[0] == '\t' || script[0] == '\r') {
		script = script[1:]
	}
	for len(script) > 0 {
		last := script[len(script)-1]
		if last != '\n' && last != ' ' && last != '\t' && last != '\r' {
			break
		}
		script = script[:len(script)-1]
	}
	return script
}

func renderInstallerConfigMap(cfg *config.UserConfig) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      installerConfigMapName(cfg),
			Namespace: cfg.Namespace,
			Labels:    labels(cfg.AppName, componentInstaller),
		},
		Data: map[string]string{
			"install.sh": wrapInstallScript(cfg.Install.Script, installMarkerPath(cfg)),
		},
	}
}

func renderInstallerJob(cfg *config.UserConfig, hasConfigMap bool) *batchv1.Job {
	install := cfg.Install

	entrypoint := install.Entrypoint
	if entrypoint == "" {
		entrypoint = "sh"
	}

	var envFrom []corev1.EnvFromSource
	if hasConfigMap {
		envFrom = append(envFrom, corev1.EnvFromSource{
			ConfigMapRef: &corev1.ConfigMapEnvSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: configMapName(cfg)},
			},
		})
	}
	envFrom = append(envFrom, corev1.EnvFromSource{
		SecretRef: &corev1.SecretEnvSource{
			LocalObjectReference: corev1.LocalObjectReference{Name: secretName(cfg)},
		},
	})

	container := corev1.Container{
		Name:    "installer",
		Image:   install.Image,
		Command: []string{entrypoint, installerMountPath + "/install.sh"},
		EnvFrom: envFrom,
		VolumeMounts: []corev1.VolumeMount{
			{Name: "data", MountPath: installerDataPath},
			{Name: "installer", MountPath: installerMountPath},
		},
		SecurityContext: containerSecurityContext(),
	}

	return &batchv1.Job{
		TypeMeta: metav1.TypeMeta{APIVersion: "batch/v1", Kind: "Job"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      installerJobName(cfg),
			Namespace: cfg.Namespace,
			Labels:    labels(cfg.AppName, componentInstaller),
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: ptr.To(int32(3)),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: labels(cfg.AppName, componentInstaller),
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyOnFailure,
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
						{
							Name: "installer",
							VolumeSource: corev1.VolumeSource{
								ConfigMap: &corev1.ConfigMapVolumeSource{
									LocalObjectReference: corev1.LocalObjectReference{
										Name: installerConfigMapName(cfg),
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

// waitForInstallContainer blocks the app container until the installer job
// has completed, without duplicating the installer into the restart path.
func waitForInstallContainer(cfg *config.UserConfig) corev1.Container {
	marker := installMarkerPath(cfg)
	return corev1.Container{
		Name:    "wait-for-install",
		Image:   waitImage,
		Command: []string{"sh", "-c", fmt.Sprintf("until [ -f %s ]; do sleep 2; done", marker)},
		VolumeMounts: []corev1.VolumeMount{
			{Name: "data", MountPath: installerDataPath},
		},
		SecurityContext: containerSecurityContext(),
	}
}
