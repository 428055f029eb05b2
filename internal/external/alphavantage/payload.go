// Package alphavantage is the acquisition client of the AlphaVantage
// fundamentals API. It turns each response into a typed FetchResult.
package alphavantage

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/strawberry/internal/contracts"
)

// Payload keys the API uses for conditions instead of data
const (
	keyInformation = "Information"
	keyNote        = "Note"
	keyError       = "Error Message"
)

// DateField is added to every record of a date-keyed payload
const DateField = "date"

// shape classifies a decoded payload and extracts its records
func shape(p payload, table, symbol, attribute string) contracts.FetchResult {
	for _, k := range []string{keyInformation, keyNote} {
		if msg, ok := p[k]; ok {
			return contracts.FetchResult{Status: contracts.FetchRateLimited, Message: fmt.Sprint(msg)}
		}
	}
	if msg, ok := p[keyError]; ok {
		return contracts.FetchResult{Status: contracts.FetchNotFound, Message: fmt.Sprint(msg)}
	}
	if len(p) == 0 {
		return contracts.FetchResult{Status: contracts.FetchNotFound, Message: "empty response"}
	}

	var records []contracts.Record
	if attribute == "" {
		records = []contracts.Record{contracts.Record(p)}
	} else {
		raw, ok := p[attribute]
		if !ok {
			return contracts.FetchResult{
				Status:  contracts.FetchNotFound,
				Message: fmt.Sprintf("payload has no %q", attribute),
			}
		}
		var err error
		if records, err = extract(raw); err != nil {
			return contracts.FetchResult{Status: contracts.FetchNotFound, Message: err.Error()}
		}
	}

	return contracts.FetchResult{
		Status: contracts.FetchOk,
		Table: &contracts.RawTable{
			Name:      table,
			Symbol:    symbol,
			FetchedAt: time.Now().UTC(),
			Records:   records,
		},
	}
}

// extract reads a list of records, or transposes a date-keyed object
// into records carrying a date field, newest first
func extract(raw interface{}) ([]contracts.Record, error) {
	switch v := raw.(type) {
	case []interface{}:
		records := make([]contracts.Record, 0, len(v))
		for _, item := range v {
			rec, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("record is %T, not an object", item)
			}
			records = append(records, rec)
		}
		return records, nil

	case map[string]interface{}:
		dates := make([]string, 0, len(v))
		for d := range v {
			dates = append(dates, d)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(dates)))

		records := make([]contracts.Record, 0, len(dates))
		for _, d := range dates {
			values, ok := v[d].(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("entry %s is %T, not an object", d, v[d])
			}
			rec := make(contracts.Record, len(values)+1)
			for k, val := range values {
				rec[k] = val
			}
			rec[DateField] = d
			records = append(records, rec)
		}
		return records, nil

	default:
		return nil, fmt.Errorf("unexpected payload type %T", raw)
	}
}
