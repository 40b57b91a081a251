// Package startup sequences the initialization work an application must run
// before it can serve its main surface. Tasks are classified into three
// tiers: critical tasks must all succeed (with bounded retries) before the
// application is usable; best-effort tasks run in parallel under a shared
// timeout and are allowed to fail; background tasks never block startup at
// all. The orchestrator drives the tiers in order, reports progress to an
// observer, and exposes a loading/ready/error state with a retry entrypoint.
package startup
