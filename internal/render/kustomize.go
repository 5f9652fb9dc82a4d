package render

// Kustomization is the kustomize.config.k8s.io/v1beta1 document written next
// to the rendered manifests so the whole directory applies as one unit.
type Kustomization struct {
	APIVersion string               `yaml:"apiVersion"`
	Kind       string               `yaml:"kind"`
	Resources  []string             `yaml:"resources"`
	Labels     []KustomizationLabel `yaml:"labels,omitempty"`
}

// KustomizationLabel is one entry of the kustomization's labels transformer.
type KustomizationLabel struct {
	Pairs map[string]string `yaml:"pairs"`
}

// NewKustomization lists the given manifest filenames as resources and adds
// the common labels applied to every rendered object.
func NewKustomization(appName string, resources []string) *Kustomization {
	return &Kustomization{
		APIVersion: "kustomize.config.k8s.io/v1beta1",
		Kind:       "Kustomization",
		Resources:  resources,
		Labels: []KustomizationLabel{
			{
				Pairs: map[string]string{
					"app.kubernetes.io/name":       appName,
					"app.kubernetes.io/managed-by": managedByLabel,
				},
			},
		},
	}
}
