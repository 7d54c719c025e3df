package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/icodeforyou/spotprice-go/types"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// zoneKey names the display zone of eetTime in the file metadata. The column
// itself holds UTC instants, as any zone aware timestamp does in parquet.
const zoneKey = "eetTime.timezone"

type parquetRow struct {
	EpochTime  int64   `parquet:"name=epochTime, type=INT64"`
	UtcTime    int64   `parquet:"name=utcTime, type=INT64, convertedtype=TIMESTAMP_MICROS"`
	EetTime    int64   `parquet:"name=eetTime, type=INT64, logicaltype=TIMESTAMP, logicaltype.isadjustedtoutc=true, logicaltype.unit=MICROS"`
	Aika       string  `parquet:"name=Aika, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price      float64 `parquet:"name=price, type=DOUBLE"`
	TaxedPrice float64 `parquet:"name=taxedPrice, type=DOUBLE"`
	TaxRate    float64 `parquet:"name=taxRate, type=DOUBLE"`
}

// Store keeps the price series in a single ZSTD compressed parquet file.
type Store struct {
	logger *slog.Logger
	path   string
}

func New(logger *slog.Logger, path string) *Store {
	return &Store{
		logger: logger.With("module", "store"),
		path:   path,
	}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the stored series. A missing file is an empty series.
func (s *Store) Load() (types.PriceSeries, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("no stored series, starting empty", slog.String("path", s.path))
		return types.NewPriceSeries(nil), nil
	}

	fr, err := local.NewLocalFileReader(s.path)
	if err != nil {
		return types.PriceSeries{}, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer fr.Close()

	columns, zone, err := readSchema(fr)
	if err != nil {
		return types.PriceSeries{}, fmt.Errorf("failed to read parquet footer of %s: %w", s.path, err)
	}
	if !slices.Equal(columns, types.SeriesColumns) {
		return types.PriceSeries{}, fmt.Errorf("%w: %s has columns %v, expected %v", types.ErrValidation, s.path, columns, types.SeriesColumns)
	}
	loc := hours.DisplayLocation()
	if zone != "" {
		if l, err := time.LoadLocation(zone); err == nil {
			loc = l
		} else {
			s.logger.Warn("unknown eetTime zone, using display zone", slog.String("zone", zone), slog.Any("error", err))
		}
	}

	pr, err := reader.NewParquetReader(fr, new(parquetRow), 1)
	if err != nil {
		return types.PriceSeries{}, fmt.Errorf("failed to open parquet reader for %s: %w", s.path, err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	records := make([]parquetRow, n)
	if n > 0 {
		if err := pr.Read(&records); err != nil {
			return types.PriceSeries{}, fmt.Errorf("failed to read rows of %s: %w", s.path, err)
		}
	}

	rows := make([]types.PriceRow, 0, n)
	for _, r := range records {
		utc := time.UnixMicro(r.UtcTime).UTC()
		rows = append(rows, types.PriceRow{
			EpochTime:        r.EpochTime,
			UtcTime:          utc,
			LocalTime:        time.UnixMicro(r.EetTime).In(loc),
			LocalDisplayTime: r.Aika,
			Price:            r.Price,
			TaxRate:          r.TaxRate,
			TaxedPrice:       r.TaxedPrice,
		})
	}

	s.logger.Debug("loaded series", slog.Int("rows", len(rows)))
	return types.PriceSeries{Columns: columns, Rows: rows}, nil
}

// readSchema returns the column names as written in the file and the zone
// recorded for eetTime. The row reader renames columns after the Go fields,
// so the names come from a reader built from the footer alone.
func readSchema(fr source.ParquetFile) ([]string, string, error) {
	pr, err := reader.NewParquetReader(fr, nil, 1)
	if err != nil {
		return nil, "", err
	}
	defer pr.ReadStop()

	infos := pr.SchemaHandler.Infos
	names := make([]string, 0, len(infos))
	// The first element is the root group.
	for _, info := range infos[1:] {
		names = append(names, info.ExName)
	}

	zone := ""
	for _, kv := range pr.Footer.GetKeyValueMetadata() {
		if kv.Key == zoneKey && kv.Value != nil {
			zone = *kv.Value
		}
	}
	return names, zone, nil
}

// Save replaces the stored series. The file is written next to the target
// and renamed into place, a failed write leaves the old file untouched.
func (s *Store) Save(series types.PriceSeries) error {
	if !slices.Equal(series.Columns, types.SeriesColumns) {
		return fmt.Errorf("%w: refusing to write columns %v", types.ErrValidation, series.Columns)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", s.path, err)
	}

	tmp := s.path + ".tmp"
	if err := writeFile(tmp, series.Rows); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}

	s.logger.Info("saved series", slog.Int("rows", series.Len()), slog.String("path", s.path))
	return nil
}

func writeFile(path string, rows []types.PriceRow) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	if err != nil {
		fw.Close()
		return fmt.Errorf("new parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_ZSTD
	zone := hours.DisplayLocation().String()
	pw.Footer.KeyValueMetadata = append(pw.Footer.KeyValueMetadata, &parquet.KeyValue{Key: zoneKey, Value: &zone})

	for _, r := range rows {
		rec := parquetRow{
			EpochTime:  r.EpochTime,
			UtcTime:    r.UtcTime.UnixMicro(),
			EetTime:    r.UtcTime.UnixMicro(),
			Aika:       r.LocalDisplayTime,
			Price:      r.Price,
			TaxedPrice: r.TaxedPrice,
			TaxRate:    r.TaxRate,
		}
		if err := pw.Write(rec); err != nil {
			pw.WriteStop()
			fw.Close()
			return fmt.Errorf("write price row: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return fmt.Errorf("finalize parquet: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
