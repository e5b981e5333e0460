package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/sartorproj/skuforecast/demand"
)

type forecastParquetRecord struct {
	Date             string `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	SKUID            string `parquet:"name=sku_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	SKUName          string `parquet:"name=sku_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	ForecastedDemand int64  `parquet:"name=forecasted_demand, type=INT64"`
}

// memFile is a write-only in-memory parquet target.
type memFile struct {
	buffer *bytes.Buffer
}

func newMemFile() *memFile {
	return &memFile{buffer: &bytes.Buffer{}}
}

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                  { return 0, fmt.Errorf("read not supported") }
func (m *memFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFile) Close() error                              { return nil }
func (m *memFile) Bytes() []byte                             { return m.buffer.Bytes() }

// CompressionCodec maps a configured compression name to a parquet codec.
func CompressionCodec(name string) (parquet.CompressionCodec, error) {
	switch strings.ToLower(name) {
	case "snappy", "":
		return parquet.CompressionCodec_SNAPPY, nil
	case "gzip":
		return parquet.CompressionCodec_GZIP, nil
	case "zstd":
		return parquet.CompressionCodec_ZSTD, nil
	case "uncompressed", "none":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return parquet.CompressionCodec_UNCOMPRESSED, fmt.Errorf("unsupported parquet compression %q", name)
	}
}

// Parquet encodes records as a single parquet file.
func Parquet(records []demand.ForecastRecord, compression string) ([]byte, error) {
	codec, err := CompressionCodec(compression)
	if err != nil {
		return nil, err
	}

	mem := newMemFile()
	pw, err := writer.NewParquetWriter(mem, new(forecastParquetRecord), 1)
	if err != nil {
		return nil, fmt.Errorf("new parquet writer: %w", err)
	}
	pw.CompressionType = codec

	for _, r := range records {
		rec := forecastParquetRecord{
			Date:             r.DateString(),
			SKUID:            r.SKUID,
			SKUName:          r.SKUName,
			ForecastedDemand: int64(r.ForecastedDemand),
		}
		if err := pw.Write(rec); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("write forecast record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize forecast parquet: %w", err)
	}
	return mem.Bytes(), nil
}
