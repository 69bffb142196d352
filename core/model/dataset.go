package model

import "time"

const (
	// WindowSize is the number of leading rows charted: 24 hours at a
	// 30-minute resolution.
	WindowSize = 48

	// TabularSuffix marks archive entries holding delimited tables.
	TabularSuffix = ".csv"

	ManagedResultsFile     = "simulation_results_with_management.csv"
	UnmanagedResultsFile   = "simulation_results_without_management.csv"
	EnergyRequirementsFile = "energy_requirements.csv"

	// ArchiveFileName is the name the raw response is saved under.
	ArchiveFileName = "simulation_results.zip"

	ColumnTimeOfDay   = "TimeOfDay"
	ColumnTotalDemand = "Total_Demand_kW"
)

// ResultArchive is the raw body returned by the remote simulation.
type ResultArchive []byte

// ExtractedFile is a decoded tabular archive entry.
type ExtractedFile struct {
	Name    string
	Content string
}

// Record is one data row keyed by the header of its table. Field order
// follows the header.
type Record struct {
	fields []string
	values map[string]string
}

// NewRecord pairs header fields with row values. Values beyond the header are
// dropped and missing trailing values are left unset. Header names are
// expected to be unique; tabular.Parse renames repeats before calling it.
func NewRecord(header, row []string) Record {
	n := len(header)
	if len(row) < n {
		n = len(row)
	}
	r := Record{fields: header[:n:n], values: make(map[string]string, n)}
	for i := 0; i < n; i++ {
		r.values[header[i]] = row[i]
	}
	return r
}

// Get returns the value stored for field.
func (r Record) Get(field string) (string, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Fields returns the populated field names in header order.
func (r Record) Fields() []string {
	out := make([]string, len(r.fields))
	copy(out, r.fields)
	return out
}

// Values returns the populated values in header order.
func (r Record) Values() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = r.values[f]
	}
	return out
}

// Len is the number of populated fields.
func (r Record) Len() int { return len(r.fields) }

// RowIssue records a data line whose column count differs from the header.
type RowIssue struct {
	Line int
	Want int
	Got  int
}

// Table is a parsed tabular archive entry.
type Table struct {
	Name    string
	Header  []string
	Records []Record
	Issues  []RowIssue
}

// Len returns the number of data records.
func (t Table) Len() int { return len(t.Records) }

// AlignedRecord pairs both power series at one time label.
type AlignedRecord struct {
	Time             string  `json:"time"`
	ManagedPowerKW   float64 `json:"managed_power_kw"`
	UnmanagedPowerKW float64 `json:"unmanaged_power_kw"`
}

// ChartDataset is the output of one successful ingestion cycle.
type ChartDataset struct {
	RunID     string          `json:"run_id"`
	CreatedAt time.Time       `json:"created_at"`
	Records   []AlignedRecord `json:"records"`
}

// Len returns the number of aligned records.
func (d ChartDataset) Len() int { return len(d.Records) }

// Labels returns the time labels in dataset order.
func (d ChartDataset) Labels() []string {
	out := make([]string, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Time
	}
	return out
}

// Managed returns the managed power series.
func (d ChartDataset) Managed() []float64 {
	out := make([]float64, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.ManagedPowerKW
	}
	return out
}

// Unmanaged returns the unmanaged power series.
func (d ChartDataset) Unmanaged() []float64 {
	out := make([]float64, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.UnmanagedPowerKW
	}
	return out
}
