// Package migrations provides embedded SQL migration files.
// The watcher applies them at startup; testutil applies the same files when
// provisioning integration-test databases.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
