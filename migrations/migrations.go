// Package migrations embeds the SQL schema for every supported store.
// Each dialect lives in its own directory; files follow goose's
// NNNNN_name.sql convention.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
