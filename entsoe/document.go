package entsoe

import "encoding/xml"

// publicationDocument is the day-ahead price document (documentType A44).
// Element pointers stay nil when the element is absent from the payload.
type publicationDocument struct {
	XMLName    xml.Name     `xml:"Publication_MarketDocument"`
	TimeSeries []timeSeries `xml:"TimeSeries"`
}

type timeSeries struct {
	MRID         string   `xml:"mRID"`
	CurrencyName *string  `xml:"currency_Unit.name"`
	UnitName     *string  `xml:"price_Measure_Unit.name"`
	Periods      []period `xml:"Period"`
}

type period struct {
	TimeInterval *timeInterval `xml:"timeInterval"`
	Resolution   *string       `xml:"resolution"`
	Points       []point       `xml:"Point"`
}

type timeInterval struct {
	Start *string `xml:"start"`
	End   *string `xml:"end"`
}

type point struct {
	Position    *string `xml:"position"`
	PriceAmount *string `xml:"price.amount"`
}

// acknowledgementDocument is returned instead of prices when the
// request matched no data or was rejected.
type acknowledgementDocument struct {
	XMLName xml.Name `xml:"Acknowledgement_MarketDocument"`
	Reasons []struct {
		Code string `xml:"code"`
		Text string `xml:"text"`
	} `xml:"Reason"`
}
