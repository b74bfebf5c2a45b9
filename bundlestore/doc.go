// Package bundlestore provides SQL-backed alternates to the bundle
// registry's (C10) default JSON file, for deployments that already run a
// database and would rather not manage another file on disk.
//
// Both backends implement bundle.RegistryBackend, so bundle.NewService
// accepts either in place of a *bundle.Registry:
//
//	reg, err := bundlestore.NewSqliteRegistry(bundlestore.SqliteOptions{Path: "registry.db"})
//	svc := bundle.NewService(parser, analyzer, reg, bundleDir, logger)
package bundlestore
