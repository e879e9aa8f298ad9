package sheets

import (
	"errors"
	"fmt"
	"os"
)

// AggregatedSuffix is appended to the worksheet name for aggregated data.
const AggregatedSuffix = "_aggregated"

// Options selects the credentials, spreadsheet and worksheet to write to.
type Options struct {
	// ClientSecret is an OAuth client secrets file or a service account key.
	ClientSecret string
	// Spreadsheet is the spreadsheet name as shown in Google Drive.
	Spreadsheet string
	// Worksheet is the worksheet (tab) title.
	Worksheet string
}

// Aggregated returns a copy of o targeting the aggregated worksheet.
func (o Options) Aggregated() Options {
	o.Worksheet += AggregatedSuffix
	return o
}

// Validate checks that all options are set and the client secret is readable.
func (o Options) Validate() error {
	if o.ClientSecret == "" || o.Spreadsheet == "" || o.Worksheet == "" {
		return errors.New("client secret, spreadsheet and worksheet are required")
	}
	f, err := os.Open(o.ClientSecret)
	if err != nil {
		return fmt.Errorf("client secret file is not readable: %w", err)
	}
	return f.Close()
}
