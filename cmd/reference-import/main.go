package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Rampap-Brasil/postmon/config"
	"github.com/Rampap-Brasil/postmon/internal/models"
	"github.com/Rampap-Brasil/postmon/internal/storage/pgcep"
	"github.com/joho/godotenv"
	"github.com/jszwec/csvutil"
	"github.com/pkg/errors"
)

// reference-import loads the IBGE states and cities tables into the
// reference store. Input files are plain CSV with a header row:
//
//	ufs.csv:     sigla,nome,codigo_ibge,area_km2
//	cidades.csv: sigla_uf,nome,codigo_ibge,area_km2
//
// The import is idempotent; rerunning with a newer dump just overwrites.

type ufRow struct {
	Sigla      string  `csv:"sigla"`
	Nome       string  `csv:"nome"`
	CodigoIBGE string  `csv:"codigo_ibge"`
	AreaKM2    float64 `csv:"area_km2"`
}

type cidadeRow struct {
	SiglaUF    string  `csv:"sigla_uf"`
	Nome       string  `csv:"nome"`
	CodigoIBGE string  `csv:"codigo_ibge"`
	AreaKM2    float64 `csv:"area_km2"`
}

type referenceStore interface {
	UpsertState(ctx context.Context, info *models.StateInfo) error
	UpsertCity(ctx context.Context, info *models.CityInfo) error
}

func main() {
	_ = godotenv.Load()

	ufsPath := flag.String("ufs", "", "path to the IBGE states CSV")
	cidadesPath := flag.String("cidades", "", "path to the IBGE cities CSV")
	flag.Parse()

	if *ufsPath == "" && *cidadesPath == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -ufs and/or -cidades")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("config parse error: %v", err))
	}

	st, err := pgcep.New(cfg.ConnString())
	if err != nil {
		panic(err)
	}
	defer st.Close()

	ctx := context.Background()

	if *ufsPath != "" {
		n, err := importFile(ctx, st, *ufsPath, importUFs)
		if err != nil {
			panic(err)
		}
		slog.Info("states imported", "count", n, "file", *ufsPath)
	}
	if *cidadesPath != "" {
		n, err := importFile(ctx, st, *cidadesPath, importCidades)
		if err != nil {
			panic(err)
		}
		slog.Info("cities imported", "count", n, "file", *cidadesPath)
	}
}

func importFile(ctx context.Context, st referenceStore, path string, load func(context.Context, referenceStore, io.Reader) (int, error)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open csv")
	}
	defer f.Close()
	return load(ctx, st, f)
}

func importUFs(ctx context.Context, st referenceStore, r io.Reader) (int, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return 0, errors.Wrap(err, "csv decoder")
	}

	count := 0
	for {
		var row ufRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return count, errors.Wrap(err, "decode uf row")
		}
		if row.Sigla == "" {
			continue
		}
		err := st.UpsertState(ctx, &models.StateInfo{
			Sigla:      row.Sigla,
			Nome:       row.Nome,
			CodigoIBGE: row.CodigoIBGE,
			AreaKM2:    row.AreaKM2,
		})
		if err != nil {
			return count, errors.Wrapf(err, "upsert state %s", row.Sigla)
		}
		count++
	}
	return count, nil
}

func importCidades(ctx context.Context, st referenceStore, r io.Reader) (int, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return 0, errors.Wrap(err, "csv decoder")
	}

	count := 0
	for {
		var row cidadeRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return count, errors.Wrap(err, "decode cidade row")
		}
		if row.SiglaUF == "" || row.Nome == "" {
			continue
		}
		err := st.UpsertCity(ctx, &models.CityInfo{
			SiglaUF:    row.SiglaUF,
			Nome:       row.Nome,
			CodigoIBGE: row.CodigoIBGE,
			AreaKM2:    row.AreaKM2,
		})
		if err != nil {
			return count, errors.Wrapf(err, "upsert city %s/%s", row.SiglaUF, row.Nome)
		}
		count++
	}
	return count, nil
}
