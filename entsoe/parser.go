package entsoe

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/icodeforyou/spotprice-go/types"
	"github.com/shopspring/decimal"
)

const (
	ResolutionHourly = "PT60M"
	startLayout      = "2006-01-02T15:04Z"
)

// ErrNoData is returned for an acknowledgement document, i.e. the
// requested period has no published prices yet.
var ErrNoData = fmt.Errorf("%w: no matching data", types.ErrStale)

// ParseDocument parses a day-ahead price document into one RawPoint slice
// per time series period.
func ParseDocument(payload []byte) ([][]types.RawPoint, error) {
	root, err := rootElement(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrParse, err)
	}

	switch root {
	case "Acknowledgement_MarketDocument":
		var ack acknowledgementDocument
		if err := xml.Unmarshal(payload, &ack); err != nil {
			return nil, fmt.Errorf("%w: acknowledgement document: %v", types.ErrParse, err)
		}
		reasons := make([]string, 0, len(ack.Reasons))
		for _, r := range ack.Reasons {
			reasons = append(reasons, strings.TrimSpace(r.Code+" "+r.Text))
		}
		return nil, fmt.Errorf("%w: %s", ErrNoData, strings.Join(reasons, "; "))
	case "Publication_MarketDocument":
	default:
		return nil, fmt.Errorf("%w: unexpected document %q", types.ErrParse, root)
	}

	var doc publicationDocument
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: publication document: %v", types.ErrParse, err)
	}

	blocks := make([][]types.RawPoint, 0, len(doc.TimeSeries))
	for i, ts := range doc.TimeSeries {
		points, err := parseTimeSeries(ts)
		if err != nil {
			return nil, fmt.Errorf("time series %d: %w", i+1, err)
		}
		blocks = append(blocks, points...)
	}
	return blocks, nil
}

func rootElement(payload []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(payload))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", fmt.Errorf("empty document")
		}
		if err != nil {
			return "", err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

// parseTimeSeries returns one block per period. A missing required element
// rejects the whole time series.
func parseTimeSeries(ts timeSeries) ([][]types.RawPoint, error) {
	currency, ok := text(ts.CurrencyName)
	if !ok {
		return nil, missing("currency_Unit.name")
	}
	unit, ok := text(ts.UnitName)
	if !ok {
		return nil, missing("price_Measure_Unit.name")
	}
	if len(ts.Periods) == 0 {
		return nil, missing("Period")
	}

	blocks := make([][]types.RawPoint, 0, len(ts.Periods))
	for _, p := range ts.Periods {
		resolution, ok := text(p.Resolution)
		if !ok {
			return nil, missing("resolution")
		}
		if resolution != ResolutionHourly && resolution != "PT1H" {
			return nil, fmt.Errorf("%w: unsupported resolution %q, expected %s", types.ErrParse, resolution, ResolutionHourly)
		}
		if p.TimeInterval == nil {
			return nil, missing("timeInterval")
		}
		startStr, ok := text(p.TimeInterval.Start)
		if !ok {
			return nil, missing("start")
		}
		start, err := parseStart(startStr)
		if err != nil {
			return nil, fmt.Errorf("%w: start %q: %v", types.ErrParse, startStr, err)
		}

		block := make([]types.RawPoint, 0, len(p.Points))
		for _, pt := range p.Points {
			posStr, ok := text(pt.Position)
			if !ok {
				return nil, missing("position")
			}
			priceStr, ok := text(pt.PriceAmount)
			if !ok {
				return nil, missing("price.amount")
			}
			pos, err := strconv.Atoi(posStr)
			if err != nil || pos < 1 {
				return nil, fmt.Errorf("%w: invalid position %q", types.ErrParse, posStr)
			}
			amount, err := decimal.NewFromString(priceStr)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid price.amount %q", types.ErrParse, priceStr)
			}
			block = append(block, types.RawPoint{
				Position:    pos,
				Resolution:  ResolutionHourly,
				BlockStart:  start,
				PriceAmount: amount,
				Currency:    currency,
				Unit:        unit,
			})
		}
		slices.SortStableFunc(block, func(a, b types.RawPoint) int { return a.Position - b.Position })
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func parseStart(s string) (time.Time, error) {
	if t, err := time.Parse(startLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func text(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	v := strings.TrimSpace(*s)
	return v, v != ""
}

func missing(element string) error {
	return fmt.Errorf("%w: missing required element %s", types.ErrParse, element)
}
