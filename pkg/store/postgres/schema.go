package postgres

import migrate "github.com/rubenv/sql-migrate"

// schemaMigrations is the single source of truth for the relational
// layout of spec.md §6: one table per entity, uuid primary keys,
// created/updated timestamps, JSON columns for the nested fields.
var schemaMigrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "0001_initial",
			Up: []string{
				`CREATE TABLE apps (
					id TEXT PRIMARY KEY,
					owner TEXT NOT NULL,
					structure JSONB NOT NULL DEFAULT '{}',
					created TIMESTAMPTZ NOT NULL DEFAULT now(),
					updated TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
				`CREATE TABLE configs (
					id TEXT PRIMARY KEY,
					app TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
					values_ JSONB NOT NULL DEFAULT '[]',
					limits JSONB NOT NULL DEFAULT '{}',
					registry JSONB NOT NULL DEFAULT '{}',
					healthcheck JSONB NOT NULL DEFAULT '{}',
					tags JSONB NOT NULL DEFAULT '{}',
					lifecycle_post_start JSONB NOT NULL DEFAULT '{}',
					lifecycle_pre_stop JSONB NOT NULL DEFAULT '{}',
					termination_grace_period JSONB NOT NULL DEFAULT '{}',
					created TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX configs_app_idx ON configs(app, created)`,
				`CREATE TABLE builds (
					id TEXT PRIMARY KEY,
					app TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
					image TEXT NOT NULL,
					stack TEXT NOT NULL DEFAULT '',
					sha TEXT NOT NULL DEFAULT '',
					procfile JSONB NOT NULL DEFAULT '{}',
					dryccfile JSONB NOT NULL DEFAULT '{}',
					created TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX builds_app_idx ON builds(app, created)`,
				`CREATE TABLE releases (
					id TEXT PRIMARY KEY,
					app TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
					version INTEGER NOT NULL,
					config TEXT NOT NULL,
					build TEXT NOT NULL DEFAULT '',
					state TEXT NOT NULL,
					failed BOOLEAN NOT NULL DEFAULT false,
					deployed_ptypes JSONB NOT NULL DEFAULT '[]',
					conditions JSONB NOT NULL DEFAULT '[]',
					summary TEXT NOT NULL DEFAULT '',
					created TIMESTAMPTZ NOT NULL DEFAULT now(),
					updated TIMESTAMPTZ NOT NULL DEFAULT now(),
					UNIQUE (app, version)
				)`,
				`CREATE TABLE app_settings (
					id TEXT PRIMARY KEY,
					app TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
					routable BOOLEAN NOT NULL DEFAULT true,
					autoscale JSONB NOT NULL DEFAULT '{}',
					label JSONB NOT NULL DEFAULT '{}',
					autodeploy BOOLEAN NOT NULL DEFAULT true,
					autorollback BOOLEAN NOT NULL DEFAULT true,
					created TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX app_settings_app_idx ON app_settings(app, created)`,
				`CREATE TABLE services (
					id TEXT PRIMARY KEY,
					app TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
					ptype TEXT NOT NULL,
					ports JSONB NOT NULL DEFAULT '[]',
					canary BOOLEAN NOT NULL DEFAULT false,
					UNIQUE (app, ptype)
				)`,
				`CREATE TABLE volumes (
					id TEXT PRIMARY KEY,
					app TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					type TEXT NOT NULL,
					size TEXT NOT NULL DEFAULT '',
					path JSONB NOT NULL DEFAULT '{}',
					UNIQUE (app, name)
				)`,
				`CREATE TABLE resources (
					id TEXT PRIMARY KEY,
					app TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					plan TEXT NOT NULL,
					options JSONB NOT NULL DEFAULT '{}',
					status TEXT NOT NULL DEFAULT '',
					binding TEXT NOT NULL DEFAULT '',
					data JSONB NOT NULL DEFAULT '{}',
					created TIMESTAMPTZ NOT NULL DEFAULT now(),
					UNIQUE (app, name)
				)`,
				`CREATE TABLE limit_plans (
					id TEXT PRIMARY KEY,
					limits JSONB NOT NULL DEFAULT '{}',
					requests JSONB NOT NULL DEFAULT '{}',
					annotations JSONB NOT NULL DEFAULT '{}',
					node_selector JSONB NOT NULL DEFAULT '{}',
					runtime_class_name TEXT NOT NULL DEFAULT '',
					pod_volumes JSONB NOT NULL DEFAULT '[]',
					container_volume_mounts JSONB NOT NULL DEFAULT '[]',
					pod_security_context JSONB NOT NULL DEFAULT '{}',
					container_security_context JSONB NOT NULL DEFAULT '{}'
				)`,
				`CREATE TABLE gateways (
					id TEXT PRIMARY KEY,
					app TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					UNIQUE (app, name)
				)`,
				`CREATE TABLE routes (
					id TEXT PRIMARY KEY,
					app TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					rules JSONB NOT NULL DEFAULT '[]',
					tls_refs JSONB NOT NULL DEFAULT '[]',
					UNIQUE (app, name)
				)`,
				`CREATE TABLE domains (
					id TEXT PRIMARY KEY,
					app TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
					domain TEXT NOT NULL UNIQUE
				)`,
				`CREATE TABLE tls (
					id TEXT PRIMARY KEY,
					app TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
					https_enforced BOOLEAN NOT NULL DEFAULT false,
					certificate_name TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE TABLE certificates (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL UNIQUE,
					domains JSONB NOT NULL DEFAULT '[]',
					certificate TEXT NOT NULL,
					key TEXT NOT NULL
				)`,
				`CREATE TABLE tokens (
					key TEXT PRIMARY KEY,
					access_token TEXT NOT NULL,
					expires_in BIGINT NOT NULL DEFAULT 0,
					token_type TEXT NOT NULL DEFAULT '',
					scope TEXT NOT NULL DEFAULT '',
					refresh_token TEXT NOT NULL DEFAULT '',
					created TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
			},
			Down: []string{
				`DROP TABLE IF EXISTS tokens, certificates, tls, domains, routes,
					gateways, limit_plans, resources, volumes, services,
					app_settings, releases, builds, configs, apps CASCADE`,
			},
		},
	},
}
