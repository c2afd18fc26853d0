package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/k8s"
	"github.com/drycc/controller/pkg/store"
)

const dockerHubAuthKey = "https://index.docker.io/v1/"

// dockerConfigJSON mirrors the `.dockerconfigjson` payload shape.
type dockerConfigJSON struct {
	Auths map[string]dockerConfigEntry `json:"auths"`
}

type dockerConfigEntry struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Auth     string `json:"auth"`
}

// registryAuthKey picks the `.dockerconfigjson.auths` key for an
// image reference: an explicit hostname wins; otherwise an image with
// no registry host (one or two path segments, no dot/colon before the
// first slash) is assumed to be docker.io, keyed by its v1 index URL;
// any image whose first path segment looks like a registry host (has
// a dot or a port, or is localhost) is keyed by that host (spec.md §8
// "registry docker config").
func registryAuthKey(image, explicitHostname string) string {
	if explicitHostname != "" {
		return explicitHostname
	}
	idx := strings.Index(image, "/")
	if idx < 0 {
		return dockerHubAuthKey
	}
	firstSegment := image[:idx]
	if strings.ContainsAny(firstSegment, ".:") || firstSegment == "localhost" {
		return firstSegment
	}
	return dockerHubAuthKey
}

// BuildDockerConfigJSON constructs the `.dockerconfigjson` payload for
// one registry auth entry keyed against image.
func BuildDockerConfigJSON(image string, auth store.RegistryAuth) []byte {
	key := registryAuthKey(image, auth.Hostname)
	raw := fmt.Sprintf("%s:%s", auth.Username, auth.Password)
	cfg := dockerConfigJSON{
		Auths: map[string]dockerConfigEntry{
			key: {
				Username: auth.Username,
				Password: auth.Password,
				Auth:     base64.StdEncoding.EncodeToString([]byte(raw)),
			},
		},
	}
	data, _ := json.Marshal(cfg)
	return data
}

// ImagePullSecretName materializes the `.dockerconfigjson` Secret for
// ptype's registry entry (explicit, then an off-cluster controller
// fallback Secret), returning the Secret name or "" when no registry
// is configured for ptype (spec.md §4.6 image_pull_secret).
func (c *Controller) ImagePullSecretName(ctx context.Context, appID, ptype, image string, cfg *store.Config) (string, error) {
	auth, ok := cfg.Registry[ptype]
	if !ok {
		return c.offClusterFallback(ctx, appID, ptype, image)
	}

	name := fmt.Sprintf("private-registry-%s", ptype)
	payload := BuildDockerConfigJSON(image, auth)
	if _, err := c.k8s.EnsureSecret(ctx, appID, name, corev1.SecretTypeDockerConfigJson, map[string][]byte{
		corev1.DockerConfigJsonKey: payload,
	}, map[string]string{"app": appID, "type": ptype, "heritage": "drycc"}); err != nil {
		return "", ctlerr.Wrap(ctlerr.ServiceUnavailable, "ensure registry secret", err)
	}
	return name, nil
}

func (c *Controller) offClusterFallback(ctx context.Context, appID, ptype, image string) (string, error) {
	fallback, err := c.k8s.GetSecret(ctx, "drycc-system", "off-cluster-registry")
	if err != nil {
		if k8s.IsNotFound(err) {
			return "", nil
		}
		return "", ctlerr.Wrap(ctlerr.ServiceUnavailable, "read off-cluster registry secret", err)
	}

	name := fmt.Sprintf("private-registry-%s-off-cluster", ptype)
	if _, err := c.k8s.EnsureSecret(ctx, appID, name, corev1.SecretTypeDockerConfigJson, fallback.Data, map[string]string{
		"app": appID, "type": ptype, "heritage": "drycc",
	}); err != nil {
		return "", ctlerr.Wrap(ctlerr.ServiceUnavailable, "ensure off-cluster registry secret", err)
	}
	return name, nil
}
