// Package registry reads organization tree snapshots from the registry that
// owns units, roles, employees and metrics.
//
// Three sources are supported, selected by config.RegistryConfig.Type:
//
//   - http:     GET {url}/api/org/tree, answering {"root_unit": Unit|null}.
//     Requests carry the configured auth (apikey, bearer, basic, mtls), a
//     per-attempt timeout and an optional token-bucket rate limit. Transport
//     failures and non-200 answers are retried with truncated exponential
//     backoff (±25% jitter); 400/401/403 are not retried.
//   - file:     a YAML or JSON document, either the envelope above or a bare
//     root unit. The file is re-read on every fetch.
//   - postgres: read-only queries over the registry tables (units, roles,
//     employees, metrics) inside one repeatable-read transaction.
//
// Every source applies orgtree defaults and orgtree.Validate before returning,
// so callers only ever see a complete, well-formed tree, nil with
// ErrNoOrganization, or an error wrapping ErrUnavailable or ErrMalformed.
package registry
