package migrations

import "embed"

// SQLite 内嵌全部 SQLite 迁移脚本。
//
//go:embed sqlite/*.sql
var SQLite embed.FS
