package api

// Route is one entry of the documentation/routing-generation table
// (spec.md §6). No router binds to it directly; it exists so a future
// HTTP layer has a single source of truth for method, path and the
// service contract that handles it.
type Route struct {
	Method  string
	Path    string
	Service string // the *Service interface name that handles this route
}

// URLMap enumerates the abbreviated HTTP surface from spec.md §6,
// grouped by resource.
var URLMap = []Route{
	{"POST", "/v2/apps", "AppService"},
	{"GET", "/v2/apps", "AppService"},
	{"GET", "/v2/apps/{id}", "AppService"},
	{"POST", "/v2/apps/{id}", "AppService"}, // transfers ownership when body has `owner`
	{"DELETE", "/v2/apps/{id}", "AppService"},

	{"GET", "/v2/apps/{id}/build", "BuildService"},
	{"POST", "/v2/apps/{id}/build", "BuildService"},

	{"GET", "/v2/apps/{id}/config", "ConfigService"},
	{"POST", "/v2/apps/{id}/config", "ConfigService"},

	{"GET", "/v2/apps/{id}/releases", "ReleaseService"},
	{"GET", "/v2/apps/{id}/releases/v{N}", "ReleaseService"},
	{"POST", "/v2/apps/{id}/releases/deploy", "DeployService"},
	{"POST", "/v2/apps/{id}/releases/rollback", "ReleaseService"},

	{"GET", "/v2/apps/{id}/ptypes", "ProjectionService"},
	{"POST", "/v2/apps/{id}/ptypes/restart", "DeployService"},
	{"POST", "/v2/apps/{id}/ptypes/clean", "DeployService"},
	{"POST", "/v2/apps/{id}/ptypes/scale", "DeployService"},
	{"GET", "/v2/apps/{id}/ptypes/{name}/describe", "ProjectionService"},
	{"POST", "/v2/apps/{id}/ptypes/{name}/autoscale", "AutoscaleService"},

	{"POST", "/v2/apps/{id}/run", "RunService"},

	{"GET", "/v2/apps/{id}/pods", "ProjectionService"},
	{"DELETE", "/v2/apps/{id}/pods/{name}", "DeployService"},
	{"GET", "/v2/apps/{id}/pods/{name}/describe", "ProjectionService"},

	{"GET", "/v2/apps/{id}/volumes", "DeployService"},
	{"POST", "/v2/apps/{id}/volumes", "DeployService"},
	{"POST", "/v2/apps/{id}/volumes/path", "DeployService"},

	{"GET", "/v2/apps/{id}/resources", "ResourceService"},
	{"POST", "/v2/apps/{id}/resources/{name}/binding", "ResourceService"},
	{"DELETE", "/v2/apps/{id}/resources/{name}/binding", "ResourceService"},

	// domains, services, tls, certs, gateways, routes follow the same
	// standard CRUD/attach-detach shape as volumes/resources above and
	// are omitted here for brevity (spec.md §6); each binds to the
	// ConfigStore/GatewayStore-backed helpers in pkg/app and pkg/store
	// rather than a dedicated *Service interface.
}
