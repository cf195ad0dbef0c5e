package pgcep

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		// One JSONB document per CEP, the whole record replaced on each
		// upsert so fields dropped between schema versions do not
		// survive a rewrite. Legacy key names inside doc are mapped at
		// read time, never migrated in place.
		`
CREATE TABLE IF NOT EXISTS ceps (
  cep TEXT PRIMARY KEY,
  doc JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS ufs (
  sigla TEXT PRIMARY KEY,
  nome TEXT NOT NULL,
  codigo_ibge TEXT NOT NULL DEFAULT '',
  area_km2 DOUBLE PRECISION NOT NULL DEFAULT 0
)`,
		`
CREATE TABLE IF NOT EXISTS cidades (
  sigla_uf_nome_cidade TEXT PRIMARY KEY,
  sigla_uf TEXT NOT NULL,
  nome TEXT NOT NULL,
  codigo_ibge TEXT NOT NULL DEFAULT '',
  area_km2 DOUBLE PRECISION NOT NULL DEFAULT 0
)`,
		`CREATE INDEX IF NOT EXISTS idx_cidades_sigla_uf ON cidades(sigla_uf)`,
		`
CREATE TABLE IF NOT EXISTS parcels (
  id BIGSERIAL PRIMARY KEY,
  provider TEXT NOT NULL,
  code TEXT NOT NULL,
  callbacks JSONB NOT NULL DEFAULT '[]',
  history JSONB NULL,
  created_at TIMESTAMPTZ NOT NULL,
  changed_at TIMESTAMPTZ NULL,
  checked_at TIMESTAMPTZ NULL,
  check_fail_count INT NOT NULL DEFAULT 0,
  next_check_at TIMESTAMPTZ NOT NULL,
  UNIQUE (provider, code)
)`,
		`CREATE INDEX IF NOT EXISTS idx_parcels_next_check_at ON parcels(next_check_at)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
