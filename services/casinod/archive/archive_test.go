package archive

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"gorm.io/gorm"

	"wagerchain/core/events"
	"wagerchain/core/types"
	"wagerchain/native/house"
)

func setupArchive(t *testing.T) *Archive {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	a := New(db, nil)
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func settled(game, player, stake, payout, profit string) events.Event {
	return events.Wrap(&types.Event{
		Type: house.EventTypeWagerSettled,
		Attributes: map[string]string{
			"game":        game,
			"player":      player,
			"stake":       stake,
			"payout":      payout,
			"result":      "win",
			"profitDelta": profit,
		},
	})
}

func TestRecordNormalisesSettlements(t *testing.T) {
	a := setupArchive(t)
	ctx := context.Background()

	a.Emit(settled("dice", "wgr1alice", "10000000", "20000000", "-10000000"))
	a.Emit(events.Wrap(&types.Event{Type: house.EventTypeDeposit, Attributes: map[string]string{"game": "dice", "amount": "5"}}))
	a.Emit(settled("slots", "wgr1bob", "5", "0", "5"))

	rows, err := a.Settlements(ctx, Filter{Game: "DICE"})
	if err != nil {
		t.Fatalf("settlements: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one dice settlement, got %d", len(rows))
	}
	if rows[0].Stake != 10_000_000 || rows[0].Payout != 20_000_000 || rows[0].ProfitDelta != -10_000_000 {
		t.Fatalf("unexpected row %+v", rows[0])
	}

	all, err := a.Events(ctx, "", 0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected every event archived, got %d", len(all))
	}
	deposits, err := a.Events(ctx, house.EventTypeDeposit, 0)
	if err != nil || len(deposits) != 1 || deposits[0].Game != "dice" {
		t.Fatalf("unexpected deposits %+v, %v", deposits, err)
	}
}

func TestRecordRejectsBarePayload(t *testing.T) {
	a := setupArchive(t)
	if err := a.Record(context.Background(), bare("x")); err == nil {
		t.Fatalf("expected error for event without payload")
	}
}

type bare string

func (b bare) EventType() string { return string(b) }

func TestExportWritesCSVAndParquet(t *testing.T) {
	a := setupArchive(t)
	ctx := context.Background()
	a.Emit(settled("dice", "wgr1alice", "10", "0", "10"))
	a.Emit(settled("dice", "wgr1bob", "20", "40", "-20"))

	res, err := a.Export(ctx, t.TempDir(), Filter{Game: "dice"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Rows != 2 {
		t.Fatalf("expected 2 rows, got %d", res.Rows)
	}

	f, err := os.Open(res.CSVPath)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 || records[0][0] != "id" || records[2][2] != "wgr1bob" || records[2][7] != "-20" {
		t.Fatalf("unexpected csv %v", records)
	}

	info, err := os.Stat(res.ParquetPath)
	if err != nil || info.Size() == 0 {
		t.Fatalf("parquet file missing: %v", err)
	}

	pf, err := local.NewLocalFileReader(res.ParquetPath)
	if err != nil {
		t.Fatalf("open parquet: %v", err)
	}
	defer pf.Close()
	pr, err := reader.NewParquetReader(pf, new(parquetRow), 1)
	if err != nil {
		t.Fatalf("parquet reader: %v", err)
	}
	defer pr.ReadStop()
	if pr.GetNumRows() != 2 {
		t.Fatalf("expected 2 parquet rows, got %d", pr.GetNumRows())
	}
	got := make([]parquetRow, 2)
	if err := pr.Read(&got); err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if got[1].Game != "dice" || got[1].Player != "wgr1bob" || got[1].Payout != 40 || got[1].ProfitDelta != -20 {
		t.Fatalf("unexpected parquet row %+v", got[1])
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x", nil); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
