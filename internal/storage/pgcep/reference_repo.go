package pgcep

import (
	"context"
	"regexp"

	"github.com/Rampap-Brasil/postmon/internal/models"
	"github.com/Rampap-Brasil/postmon/internal/slug"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// Some city names carry a colloquial alternate in parentheses,
// e.g. "Embu (Embu das Artes)"; both spellings must resolve.
var altCityName = regexp.MustCompile(`\((.+)\)`)

func (s *Storage) GetState(ctx context.Context, sigla string) (*models.StateInfo, error) {
	var info models.StateInfo
	err := s.db.QueryRow(ctx, `
SELECT sigla, nome, codigo_ibge, area_km2 FROM ufs WHERE sigla = $1
`, sigla).Scan(&info.Sigla, &info.Nome, &info.CodigoIBGE, &info.AreaKM2)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select uf")
	}
	return &info, nil
}

func (s *Storage) GetCity(ctx context.Context, siglaUF, nomeCidade string) (*models.CityInfo, error) {
	keys := []string{slug.CityKey(siglaUF, nomeCidade)}
	if m := altCityName.FindStringSubmatch(nomeCidade); m != nil {
		keys = append(keys, slug.CityKey(siglaUF, m[1]))
	}

	var info models.CityInfo
	err := s.db.QueryRow(ctx, `
SELECT sigla_uf, nome, codigo_ibge, area_km2 FROM cidades
WHERE sigla_uf_nome_cidade = ANY($1)
LIMIT 1
`, keys).Scan(&info.SiglaUF, &info.Nome, &info.CodigoIBGE, &info.AreaKM2)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select cidade")
	}
	return &info, nil
}

func (s *Storage) UpsertState(ctx context.Context, info *models.StateInfo) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO ufs (sigla, nome, codigo_ibge, area_km2)
VALUES ($1,$2,$3,$4)
ON CONFLICT (sigla)
DO UPDATE SET nome = EXCLUDED.nome, codigo_ibge = EXCLUDED.codigo_ibge, area_km2 = EXCLUDED.area_km2
`, info.Sigla, info.Nome, info.CodigoIBGE, info.AreaKM2)
	return errors.Wrap(err, "upsert uf")
}

func (s *Storage) UpsertCity(ctx context.Context, info *models.CityInfo) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO cidades (sigla_uf_nome_cidade, sigla_uf, nome, codigo_ibge, area_km2)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (sigla_uf_nome_cidade)
DO UPDATE SET nome = EXCLUDED.nome, codigo_ibge = EXCLUDED.codigo_ibge, area_km2 = EXCLUDED.area_km2
`, slug.CityKey(info.SiglaUF, info.Nome), info.SiglaUF, info.Nome, info.CodigoIBGE, info.AreaKM2)
	return errors.Wrap(err, "upsert cidade")
}
