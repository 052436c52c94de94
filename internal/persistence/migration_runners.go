package persistence

import (
	"context"

	"podfed/internal/core"
)

type MigrationUpRunner struct {
	Migrator core.Migrator
}

func (m *MigrationUpRunner) Run(ctx context.Context) error {
	return m.Migrator.Up(ctx)
}

type MigrationDownRunner struct {
	Migrator core.Migrator
}

func (m *MigrationDownRunner) Run(ctx context.Context) error {
	return m.Migrator.Down(ctx)
}

// MigrationToRunner migrates to the version held in Version.
type MigrationToRunner struct {
	Migrator core.Migrator
	Version  *MigrationVersion
}

type MigrationVersion struct {
	Value uint
}

func (m *MigrationToRunner) Run(ctx context.Context) error {
	return m.Migrator.Migrate(ctx, m.Version.Value)
}
