package pgcep

import (
	"context"
	"encoding/json"

	"github.com/Rampap-Brasil/postmon/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// Legacy documents carry the address line under "endereço" (or its
// ASCII variant) instead of "logradouro".
var legacyStreetKeys = []string{"endereço", "endereco"}

// FetchAddress returns the record for a cleaned code, or nil when the
// store has none. Legacy street keys are mapped into the canonical field
// on the way out; the stored document is never rewritten for it.
func (s *Storage) FetchAddress(ctx context.Context, code string) (*models.Address, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM ceps WHERE cep = $1`, code).Scan(&doc)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select cep")
	}
	return decodeAddressDoc(doc)
}

// UpsertAddress writes the record as a whole document, atomically. A
// canonical field absent from rec is thereby absent after the write:
// nothing from a previous schema version survives.
func (s *Storage) UpsertAddress(ctx context.Context, rec *models.Address) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal address doc")
	}

	_, err = s.db.Exec(ctx, `
INSERT INTO ceps (cep, doc, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (cep)
DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
`, rec.CEP, doc)
	return errors.Wrap(err, "upsert cep")
}

func (s *Storage) DeleteAddress(ctx context.Context, code string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM ceps WHERE cep = $1`, code)
	return errors.Wrap(err, "delete cep")
}

// FindMalformed lists records whose district is empty or missing and
// which are not flagged not-found. The lookup path never calls this; the
// district-cleanup tool does.
func (s *Storage) FindMalformed(ctx context.Context) ([]*models.Address, error) {
	rows, err := s.db.Query(ctx, `
SELECT doc FROM ceps
WHERE COALESCE(doc->>'bairro', '') = ''
  AND NOT COALESCE((doc->'_meta'->>'__notfound__')::boolean, false)
ORDER BY cep
`)
	if err != nil {
		return nil, errors.Wrap(err, "select malformed ceps")
	}
	defer rows.Close()

	var out []*models.Address
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.Wrap(err, "scan malformed cep")
		}
		rec, err := decodeAddressDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// DeleteMalformed removes what FindMalformed matches, returning the count.
func (s *Storage) DeleteMalformed(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `
DELETE FROM ceps
WHERE COALESCE(doc->>'bairro', '') = ''
  AND NOT COALESCE((doc->'_meta'->>'__notfound__')::boolean, false)
`)
	if err != nil {
		return 0, errors.Wrap(err, "delete malformed ceps")
	}
	return tag.RowsAffected(), nil
}

func decodeAddressDoc(doc []byte) (*models.Address, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, errors.Wrap(err, "decode address doc")
	}
	if _, ok := raw["logradouro"]; !ok {
		for _, k := range legacyStreetKeys {
			if v, ok := raw[k]; ok {
				raw["logradouro"] = v
				break
			}
		}
	}

	fixed, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, "re-encode address doc")
	}
	var rec models.Address
	if err := json.Unmarshal(fixed, &rec); err != nil {
		return nil, errors.Wrap(err, "decode address")
	}
	return &rec, nil
}
