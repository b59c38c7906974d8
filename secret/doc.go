// Package secret resolves secret references in configuration values,
// keeping credentials such as the remote cache password out of config
// files.
//
// It supports:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable secret providers (see Provider)
//   - Resolving secret references in configuration values (see Resolver)
//
// References use the prefix "secretref:":
//   - Full value:  secretref:env:REDIS_PASSWORD
//   - Inline use:  AUTH secretref:env:REDIS_PASSWORD
package secret
