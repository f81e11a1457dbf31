package archive

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// ExportResult references the files produced by Export.
type ExportResult struct {
	CSVPath     string `json:"csvPath"`
	ParquetPath string `json:"parquetPath"`
	Rows        int    `json:"rows"`
}

var csvHeader = []string{
	"id", "game", "player", "result", "outcome", "stake", "payout",
	"profit_delta", "jackpot_paid", "referral_accrual", "created_at",
}

// Export writes the settlements matching f to a CSV and a Parquet file under
// dir. File names carry the game and the export time.
func (a *Archive) Export(ctx context.Context, dir string, f Filter) (*ExportResult, error) {
	rows, err := a.Settlements(ctx, f)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create export dir: %w", err)
	}
	scope := f.Game
	if scope == "" {
		scope = "all"
	}
	base := filepath.Join(dir, fmt.Sprintf("settlements-%s-%s", scope, a.now().UTC().Format("20060102T150405")))
	out := &ExportResult{CSVPath: base + ".csv", ParquetPath: base + ".parquet", Rows: len(rows)}
	if err := writeCSV(out.CSVPath, rows); err != nil {
		return nil, err
	}
	if err := writeParquet(out.ParquetPath, rows); err != nil {
		return nil, err
	}
	a.log.Info("archive export", "game", scope, "rows", len(rows), "csv", out.CSVPath, "parquet", out.ParquetPath)
	return out, nil
}

func writeCSV(path string, rows []Settlement) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: create csv: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("archive: write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.ID.String(),
			row.Game,
			row.Player,
			row.Result,
			row.Outcome,
			strconv.FormatInt(row.Stake, 10),
			strconv.FormatInt(row.Payout, 10),
			strconv.FormatInt(row.ProfitDelta, 10),
			strconv.FormatInt(row.JackpotPaid, 10),
			strconv.FormatInt(row.ReferralAccrual, 10),
			row.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("archive: write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("archive: flush csv: %w", err)
	}
	return file.Close()
}

type parquetRow struct {
	ID              string `parquet:"name=id, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Game            string `parquet:"name=game, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Player          string `parquet:"name=player, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Result          string `parquet:"name=result, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Outcome         string `parquet:"name=outcome, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Stake           int64  `parquet:"name=stake, type=INT64"`
	Payout          int64  `parquet:"name=payout, type=INT64"`
	ProfitDelta     int64  `parquet:"name=profit_delta, type=INT64"`
	JackpotPaid     int64  `parquet:"name=jackpot_paid, type=INT64"`
	ReferralAccrual int64  `parquet:"name=referral_accrual, type=INT64"`
	CreatedAt       string `parquet:"name=created_at, type=UTF8, encoding=PLAIN_DICTIONARY"`
}

func writeParquet(path string, rows []Settlement) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("archive: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		pr := &parquetRow{
			ID:              row.ID.String(),
			Game:            row.Game,
			Player:          row.Player,
			Result:          row.Result,
			Outcome:         row.Outcome,
			Stake:           row.Stake,
			Payout:          row.Payout,
			ProfitDelta:     row.ProfitDelta,
			JackpotPaid:     row.JackpotPaid,
			ReferralAccrual: row.ReferralAccrual,
			CreatedAt:       row.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := pw.Write(pr); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("archive: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("archive: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("archive: close parquet file: %w", err)
	}
	return nil
}
