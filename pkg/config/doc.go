/*
Package config loads Relator's two configuration surfaces.

The deployment manifest is YAML (apiVersion/kind/metadata/spec) and describes
the target cloud environment: project, region, registry, image, service
identity, secret names with value-by-reference sources, the deployed service
and its scheduled trigger. `relator deploy -f env.yaml` applies it.

The agent file is TOML and declares the pipeline command plus one or more
sessions with defaults, retry policy and email delivery settings. `relator
run -c agent.toml` executes them.

Environment variables are captured once into an Env snapshot at load time;
no component reads ambient process state after loading. Session overrides
from the snapshot (SESSAO, date range, document name, delivery fields) are
applied through Override, scoped by the caller to a single selected session.
ConfigError marks fatal configuration problems, reported before any remote
call.
*/
package config
